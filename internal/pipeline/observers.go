package pipeline

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/metrics"
)

// LogObserver writes events as structured logs.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver wires a zap logger to the Observer interface.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

// Observe logs evt at a level matching its stage.
func (o *LogObserver) Observe(evt Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("stage", string(evt.Stage)),
		zap.String("mode", evt.Mode),
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL))
	}
	if evt.Title != "" {
		fields = append(fields, zap.String("title", evt.Title))
	}
	if evt.Field != "" {
		fields = append(fields, zap.String("field", evt.Field), zap.String("source", evt.Source))
	}
	if evt.Bytes > 0 {
		fields = append(fields, zap.Int("bytes", evt.Bytes))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	if evt.Err != nil {
		fields = append(fields, zap.Error(evt.Err))
	}

	switch evt.Stage {
	case StageFallback, StageFetched, StageMetadata:
		o.logger.Debug("harvest event", fields...)
	case StageSkipped, StageMirrorFailed, StageRestored:
		o.logger.Warn("harvest event", fields...)
	case StageFailed, StageRunError:
		o.logger.Error("harvest event", fields...)
	default:
		o.logger.Info("harvest event", fields...)
	}
}

// MetricsObserver counts events with the Prometheus collectors.
type MetricsObserver struct{}

// NewMetricsObserver registers the collectors and returns the observer.
func NewMetricsObserver() MetricsObserver {
	metrics.Init()
	return MetricsObserver{}
}

// Observe implements Observer.
func (MetricsObserver) Observe(evt Event) {
	switch evt.Stage {
	case StageSaved:
		metrics.ObserveRecord("saved")
	case StageSkipped:
		metrics.ObserveRecord("skipped")
	case StageFailed:
		metrics.ObserveRecord("failed")
	case StageFallback:
		metrics.ObserveFallback(evt.Field, evt.Source)
	case StageRunDone:
		metrics.ObserveRun(evt.Mode, "success")
	case StageRunError:
		metrics.ObserveRun(evt.Mode, "error")
	}
}
