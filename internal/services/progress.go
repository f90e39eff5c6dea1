package services

import (
	"github.com/google/uuid"

	"github.com/Adhiksha007/AuraFinance/internal/models"
)

// ProgressReporter emits the event stream for a long-running run. Events
// are pushed to a buffered channel drained by an SSE writer; exactly one
// terminal event (complete or error) closes the stream.
type ProgressReporter struct {
	RunID  string
	events chan models.StreamEvent
	done   bool
}

func NewProgressReporter(buffer int) *ProgressReporter {
	return &ProgressReporter{
		RunID:  uuid.NewString(),
		events: make(chan models.StreamEvent, buffer),
	}
}

// Events is the channel the SSE writer drains. Closed after the terminal
// event is emitted.
func (r *ProgressReporter) Events() <-chan models.StreamEvent {
	return r.events
}

func (r *ProgressReporter) Info(message string) {
	r.emit(models.StreamEvent{Type: models.EventInfo, Message: message})
}

func (r *ProgressReporter) Log(message string) {
	r.emit(models.StreamEvent{Type: models.EventLog, Message: message})
}

// Progress reports fraction complete in [0, 1].
func (r *ProgressReporter) Progress(stage string, fraction float64) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	r.emit(models.StreamEvent{Type: models.EventProgress, Message: stage, Progress: fraction})
}

// Complete emits the terminal success event carrying the result payload
// and closes the stream. Subsequent calls are no-ops.
func (r *ProgressReporter) Complete(payload any) {
	if r.done {
		return
	}
	r.done = true
	r.events <- models.StreamEvent{Type: models.EventComplete, RunID: r.RunID, Data: payload}
	close(r.events)
}

// Fail emits the terminal error event and closes the stream. Subsequent
// calls are no-ops.
func (r *ProgressReporter) Fail(err error) {
	if r.done {
		return
	}
	r.done = true
	r.events <- models.StreamEvent{Type: models.EventError, RunID: r.RunID, Message: err.Error()}
	close(r.events)
}

func (r *ProgressReporter) emit(ev models.StreamEvent) {
	if r.done {
		return
	}
	ev.RunID = r.RunID
	select {
	case r.events <- ev:
	default:
		// Slow consumer: drop intermediate events rather than block the run.
	}
}
