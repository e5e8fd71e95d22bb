package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WriteBack periodically persists pending config and event log changes.
type WriteBack struct {
	config   *ConfigStore
	events   *EventLog
	interval time.Duration
	log      *zap.Logger
}

// NewWriteBack creates a write-back service.
func NewWriteBack(config *ConfigStore, events *EventLog, interval time.Duration, log *zap.Logger) *WriteBack {
	return &WriteBack{config: config, events: events, interval: interval, log: log}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (w *WriteBack) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; give the final flush its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.Flush(flushCtx)
			cancel()
			w.log.Info("write-back stopped")
			return
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush persists any pending changes now.
func (w *WriteBack) Flush(ctx context.Context) {
	if err := w.config.PersistIfModified(ctx); err != nil {
		w.log.Error("failed to persist thresholds", zap.Error(err))
	}
	if err := w.events.Flush(ctx); err != nil {
		w.log.Error("failed to persist event log", zap.Error(err))
	}
}
