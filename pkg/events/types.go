package events

import "encoding/json"

// Event name constants
const (
	// SnapshotUpdated carries a powerinfo.Snapshot after every poll.
	SnapshotUpdated = "snapshot.updated"
	// ConfigReloaded carries a ConfigReloadedEvent.
	ConfigReloaded = "config.reloaded"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// ConfigReloadedEvent is the typed payload for config.reloaded.
type ConfigReloadedEvent struct {
	PollIntervalSeconds int   `json:"pollIntervalSeconds"`
	Ts                  int64 `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	snap, err := events.DecodeAs[powerinfo.Snapshot](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(snap.EstimatedTimeRemaining)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
