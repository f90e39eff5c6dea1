package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhiksha007/AuraFinance/internal/models"
)

func drain(r *ProgressReporter) []models.StreamEvent {
	var events []models.StreamEvent
	for ev := range r.Events() {
		events = append(events, ev)
	}
	return events
}

func TestProgressReporter_TerminatesWithComplete(t *testing.T) {
	r := NewProgressReporter(8)
	r.Info("starting")
	r.Progress("working", 0.5)
	r.Complete(map[string]int{"answer": 42})

	events := drain(r)
	require.Len(t, events, 3)

	assert.Equal(t, models.EventInfo, events[0].Type)
	assert.Equal(t, models.EventProgress, events[1].Type)
	assert.Equal(t, 0.5, events[1].Progress)

	last := events[2]
	assert.Equal(t, models.EventComplete, last.Type)
	assert.Equal(t, r.RunID, last.RunID)
	assert.NotNil(t, last.Data)
}

func TestProgressReporter_TerminatesWithError(t *testing.T) {
	r := NewProgressReporter(8)
	r.Fail(errors.New("upstream offline"))

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Equal(t, "upstream offline", events[0].Message)
}

func TestProgressReporter_TerminalIsFinal(t *testing.T) {
	r := NewProgressReporter(8)
	r.Complete("done")
	r.Fail(errors.New("too late"))
	r.Info("ignored")
	r.Progress("ignored", 1)

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventComplete, events[0].Type)
}

func TestProgressReporter_ClampsProgress(t *testing.T) {
	r := NewProgressReporter(8)
	r.Progress("warming", -0.5)
	r.Progress("done", 1.7)
	r.Complete(nil)

	events := drain(r)
	require.Len(t, events, 3)
	assert.Equal(t, 0.0, events[0].Progress)
	assert.Equal(t, 1.0, events[1].Progress)
}

func TestProgressReporter_DropsWhenBufferFull(t *testing.T) {
	r := NewProgressReporter(1)
	r.Info("kept")
	r.Info("dropped")
	assert.Equal(t, 1, len(r.events))

	// The terminal event still lands once a consumer drains; only
	// intermediates are shed.
	go r.Complete(nil)
	events := drain(r)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventComplete, events[1].Type)
}
