package migrate

import "time"

// EventType identifies a progress event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
	EventFailed   EventType = "failed"
)

// Event reports progress of a single migration within a run.
type Event struct {
	Type      EventType
	Direction Direction
	Version   string
	Name      string
	// Position is 1-based within the run.
	Position int
	Total    int
	Duration time.Duration
	Err      error
}

func (ev Event) with(t EventType, d time.Duration, err error) Event {
	ev.Type = t
	ev.Duration = d
	ev.Err = err
	return ev
}
