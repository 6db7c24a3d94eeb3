package client

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

func (c *Client) GetSnapshot() (*powerinfo.Snapshot, error) {
	ret, err := c.Get("/snapshot")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get snapshot")
	}
	return decode[powerinfo.Snapshot](ret, "snapshot")
}

// Refresh asks the daemon to poll now and returns the fresh snapshot.
func (c *Client) Refresh() (*powerinfo.Snapshot, error) {
	ret, err := c.Post("/refresh", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to refresh snapshot")
	}
	return decode[powerinfo.Snapshot](ret, "snapshot")
}

// GetHistory returns the in-memory snapshots captured within last. A zero
// duration returns everything the daemon holds.
func (c *Client) GetHistory(last time.Duration) (*powerinfo.History, error) {
	path := "/history"
	if last > 0 {
		path += "?last=" + url.QueryEscape(last.String())
	}
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get history")
	}
	return decode[powerinfo.History](ret, "history")
}

// GetStoredHistory returns persisted snapshots, newest first. It fails with
// ErrNotFound when the daemon has no history database.
func (c *Client) GetStoredHistory(limit int) ([]powerinfo.Snapshot, error) {
	ret, err := c.Get("/history/stored?limit=" + strconv.Itoa(limit))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get stored history")
	}
	s, err := decode[[]powerinfo.Snapshot](ret, "stored history")
	if err != nil {
		return nil, err
	}
	return *s, nil
}

func (c *Client) GetDebugInfo() (*powerinfo.DebugInfo, error) {
	ret, err := c.Get("/debug")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get debug info")
	}
	return decode[powerinfo.DebugInfo](ret, "debug info")
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	return decode[config.RawFileConfig](ret, "config")
}

func (c *Client) SetPollInterval(d time.Duration) (string, error) {
	return c.Put("/poll-interval", strconv.Itoa(int(d/time.Second)))
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

func decode[T any](body, what string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}
