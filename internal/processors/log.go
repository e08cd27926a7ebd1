package processors

import (
	"context"
	"log/slog"

	"targetsync/internal/catalog"
	"targetsync/internal/worker"
	"targetsync/pkg/logging"
)

// LogKindName is the registered name of the log worker kind.
const LogKindName = "log"

// LogKind returns the log worker kind for the given connector name.
func LogKind(connector string) worker.Kind {
	return worker.Kind{
		Name: LogKindName,
		NewWorker: func(desc catalog.TargetDescriptor, merged map[string]any, _ worker.ResourceConnector) (worker.Worker, error) {
			return &LogWorker{
				desc:   desc,
				keys:   len(merged),
				logger: logging.ForTarget("LogWorker", connector, desc.Name()),
			}, nil
		},
	}
}

// LogWorker logs refreshes and the change events that concern its target.
type LogWorker struct {
	desc   catalog.TargetDescriptor
	keys   int
	logger *logging.Logger
}

func (w *LogWorker) Refresh(context.Context) error {
	w.logger.Debug("Refreshed %s %s (version %s, %d configuration keys)",
		w.desc.TargetElementType, w.desc.TargetElementID, w.desc.VersionStamp, w.keys)
	return nil
}

func (w *LogWorker) ProcessEvent(_ context.Context, ev catalog.Event) error {
	if !concerns(w.desc, ev) {
		return nil
	}
	w.logger.With(slog.String("event", ev.ID), slog.String("source", ev.Source)).
		Info("Element %s %s", ev.ElementID, ev.Kind)
	return nil
}
