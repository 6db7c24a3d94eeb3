package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/events"
)

// SubscribeEvents opens the daemon's event stream. The returned channel is
// closed when ctx is done or the daemon ends the stream.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "http://unix/events", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, pkgerrors.Errorf("got %d: %s", resp.StatusCode, string(b))
	}

	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		err := parseEvents(resp.Body, func(ev events.Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.WithError(err).Debug("event stream ended")
		}
	}()

	return ch, nil
}

// parseEvents reads a text/event-stream and calls emit for every complete
// event until r is exhausted or emit returns false.
func parseEvents(r io.Reader, emit func(events.Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if len(data) > 0 {
				ev := events.Event{Name: name, Data: []byte(strings.Join(data, "\n"))}
				if !emit(ev) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}

	return scanner.Err()
}
