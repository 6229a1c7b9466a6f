package pipeline

import "time"

// Stage names a milestone of a run.
type Stage string

// Stages emitted by the driver.
const (
	StageRunStart     Stage = "RUN_START"
	StageRunDone      Stage = "RUN_DONE"
	StageRunError     Stage = "RUN_ERROR"
	StageFetched      Stage = "FETCHED"
	StageSkipped      Stage = "SKIPPED"
	StageFallback     Stage = "FALLBACK"
	StageSaved        Stage = "SAVED"
	StageFailed       Stage = "FAILED"
	StageMirrorFailed Stage = "MIRROR_FAILED"
	StageMetadata     Stage = "MALFORMED_METADATA"
	StageRestored     Stage = "RESTORED"
)

// Event is one milestone of a run.
type Event struct {
	RunID string
	TS    time.Time
	Stage Stage
	// Mode is "pages" or "listing".
	Mode  string
	URL   string
	Title string
	// Field and Source describe a fallback.
	Field  string
	Source string
	// Bytes is the size of a fetched page.
	Bytes int
	Err   error
	Note  string
}

// Observer consumes events. Observers are called synchronously from the run.
type Observer interface {
	Observe(evt Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(evt Event) { f(evt) }

// Observers fans an event out to each observer in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(evt Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(evt)
		}
	}
}
