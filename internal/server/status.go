package server

import (
	"sync"
	"time"

	"github.com/JakeFAU/recipe-harvester/internal/pipeline"
)

// RunStatus is the progress of the most recent run.
type RunStatus struct {
	RunID     string    `json:"run_id,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Fetched   int       `json:"fetched"`
	Saved     int       `json:"saved"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Fallbacks int       `json:"fallbacks"`
	LastError string    `json:"last_error,omitempty"`
}

// Run states reported by Tracker.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Tracker folds pipeline events into a RunStatus. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewTracker returns an idle Tracker.
func NewTracker() *Tracker {
	return &Tracker{status: RunStatus{State: StateIdle}}
}

// Observe implements pipeline.Observer.
func (t *Tracker) Observe(evt pipeline.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if evt.Stage == pipeline.StageRunStart {
		t.status = RunStatus{RunID: evt.RunID, Mode: evt.Mode, State: StateRunning, StartedAt: evt.TS}
	}
	s := &t.status
	s.UpdatedAt = evt.TS
	switch evt.Stage {
	case pipeline.StageFetched:
		s.Fetched++
	case pipeline.StageSaved:
		s.Saved++
	case pipeline.StageSkipped:
		s.Skipped++
	case pipeline.StageFailed:
		s.Failed++
	case pipeline.StageFallback:
		s.Fallbacks++
	case pipeline.StageRunDone:
		s.State = StateDone
	case pipeline.StageRunError:
		s.State = StateFailed
	}
	if evt.Err != nil {
		s.LastError = evt.Err.Error()
	}
}

// Status returns a copy of the current status.
func (t *Tracker) Status() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
