package engine

import "time"

// EventType tags per-node lifecycle notifications.
type EventType string

const (
	EventStarted   EventType = "STARTED"
	EventSucceeded EventType = "SUCCEEDED"
	EventFailed    EventType = "FAILED"
	// EventUpToDate: a file recipe was skipped because its output is fresh.
	EventUpToDate EventType = "UP_TO_DATE"
	// EventWouldRun: dry-run stand-in for execution.
	EventWouldRun EventType = "WOULD_RUN"
	// EventLine: one line of command output or echo.
	EventLine EventType = "LINE"
)

// Event is a per-node completion/lifecycle notification for CLI reporting.
type Event struct {
	Recipe   string
	Type     EventType
	Duration time.Duration
	Message  string
	Err      error
}

// Observer receives run events. Implementations must tolerate concurrent
// calls from worker goroutines.
type Observer interface {
	ObserveEvent(Event)
}

type multiObserver []Observer

func (m multiObserver) ObserveEvent(ev Event) {
	for _, o := range m {
		if o != nil {
			o.ObserveEvent(ev)
		}
	}
}
