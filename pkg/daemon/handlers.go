package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/version"
)

const maxStoredHistoryLimit = 10000

func (d *Daemon) getSnapshot(c *gin.Context) {
	snap, ok := d.recorder.Last()
	if !ok {
		snap = d.poll()
	}
	c.IndentedJSON(http.StatusOK, snap)
}

func (d *Daemon) refresh(c *gin.Context) {
	snap := d.poll()
	d.wakeLoop()
	c.IndentedJSON(http.StatusOK, snap)
}

func (d *Daemon) getHistory(c *gin.Context) {
	var last time.Duration
	if q := c.Query("last"); q != "" {
		var err error
		last, err = time.ParseDuration(q)
		if err != nil || last <= 0 {
			if err == nil {
				err = fmt.Errorf("last must be positive, got %s", q)
			}
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}

	c.IndentedJSON(http.StatusOK, d.recorder.History(last))
}

func (d *Daemon) getStoredHistory(c *gin.Context) {
	if d.store == nil {
		err := errors.New("history database is not configured")
		c.IndentedJSON(http.StatusNotFound, err.Error())
		_ = c.AbortWithError(http.StatusNotFound, err)
		return
	}

	limit := 100
	if q := c.Query("limit"); q != "" {
		l, err := strconv.Atoi(q)
		if err != nil || l < 1 || l > maxStoredHistoryLimit {
			err = fmt.Errorf("limit must be between 1 and %d, got %s", maxStoredHistoryLimit, q)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
		limit = l
	}

	snaps, err := d.store.Recent(limit)
	if err != nil {
		logrus.Errorf("getStoredHistory failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if snaps == nil {
		c.IndentedJSON(http.StatusOK, []any{})
		return
	}

	c.IndentedJSON(http.StatusOK, snaps)
}

func (d *Daemon) getDebugInfo(c *gin.Context) {
	info := d.producer.DebugInfo()
	info.Host = d.hostInfo()
	c.IndentedJSON(http.StatusOK, info)
}

func (d *Daemon) getConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.conf.Raw())
}

func (d *Daemon) setPollInterval(c *gin.Context) {
	var s int
	if err := c.BindJSON(&s); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.conf.SetPollInterval(time.Duration(s) * time.Second); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	d.wakeLoop()

	logrus.Infof("set poll interval to %ds", s)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set poll interval to %ds", s))
}

func (d *Daemon) streamEvents(c *gin.Context) {
	ch := d.hub.Subscribe()
	defer d.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Send headers now so subscribers are not blocked until the first event.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
