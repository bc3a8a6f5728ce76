package middleware

import (
	"context"
	"log/slog"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// LoggingObserver writes store events to a structured logger. Writes,
// recomputes, propagation and pruning are logged at Debug; undo at Info;
// faults at Warn.
type LoggingObserver struct {
	logger *slog.Logger
}

// Logging creates an observer that logs to logger, or to slog.Default if
// logger is nil.
func Logging(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger.With("component", "rxstate.observer")}
}

func (o *LoggingObserver) enabled(level slog.Level) bool {
	return o.logger.Enabled(context.Background(), level)
}

func (o *LoggingObserver) OnWrite(e reactive.WriteEvent) {
	if !o.enabled(slog.LevelDebug) {
		return
	}
	o.logger.Debug("write",
		"store", e.Store,
		"key", e.Key.String(),
		"type", e.Type,
		"silent", e.Silent,
	)
}

func (o *LoggingObserver) OnRecompute(e reactive.RecomputeEvent) {
	if !o.enabled(slog.LevelDebug) {
		return
	}
	o.logger.Debug("recompute",
		"store", e.Store,
		"key", e.Key.String(),
		"depth", e.Depth,
		"changed", e.Changed,
		"duration", e.Duration,
	)
}

func (o *LoggingObserver) OnPropagate(e reactive.PropagateEvent) {
	if !o.enabled(slog.LevelDebug) {
		return
	}
	o.logger.Debug("propagate",
		"store", e.Store,
		"source", e.Source.String(),
		"depth", e.Depth,
		"dependents", e.Dependents,
	)
}

func (o *LoggingObserver) OnPrune(e reactive.PruneEvent) {
	if !o.enabled(slog.LevelDebug) {
		return
	}
	o.logger.Debug("prune",
		"store", e.Store,
		"owner", e.Owner.String(),
		"source", e.Source.String(),
	)
}

func (o *LoggingObserver) OnUndo(e reactive.UndoEvent) {
	o.logger.Info("undo",
		"store", e.Store,
		"key", e.Key.String(),
		"global", e.Global,
		"remaining", e.Remaining,
	)
}

func (o *LoggingObserver) OnFault(e reactive.FaultEvent) {
	if e.Err == nil {
		return
	}
	o.logger.Warn("usage fault",
		"store", e.Store,
		"code", e.Err.Code,
		"op", e.Err.Op,
		"key", e.Err.Key.String(),
		"error", e.Err.Error(),
	)
}
