package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"sensor-endpoint/internal/threshold"
)

// ConfigStore owns the live threshold config and writes it back to the
// database only when it has been modified.
type ConfigStore struct {
	guard     *threshold.Guard
	store     Store
	modified  atomic.Bool
	persistMu sync.Mutex // serializes PersistIfModified so an older read never lands after a newer one
	onChange  func(threshold.Config)
	log       *zap.Logger
}

// NewConfigStore loads the persisted thresholds, falling back to defaults on a fresh database.
// Persisted values that no longer satisfy the ordering are replaced by defaults.
func NewConfigStore(ctx context.Context, s Store, defaults threshold.Config, log *zap.Logger) (*ConfigStore, error) {
	cfg, err := s.LoadThresholds(ctx)
	cs := &ConfigStore{store: s, log: log}
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info("no persisted thresholds, using defaults")
		cfg = defaults
		cs.modified.Store(true)
	case err != nil:
		return nil, err
	case !cfg.Valid():
		log.Warn("persisted thresholds are out of order, using defaults",
			zap.Int("tcrit_hi", cfg.HighAlarm), zap.Int("twarn_hi", cfg.HighWarn),
			zap.Int("tcrit_lo", cfg.LowAlarm), zap.Int("twarn_lo", cfg.LowWarn))
		cfg = defaults
		cs.modified.Store(true)
	}
	cs.guard = threshold.NewGuard(cfg)
	return cs, nil
}

// Read returns a copy of the current thresholds.
func (c *ConfigStore) Read() threshold.Config {
	return c.guard.Read()
}

// Apply validates and commits one threshold change. Accepted changes mark the config modified.
func (c *ConfigStore) Apply(kind threshold.Kind, value int) error {
	if err := c.guard.Apply(kind, value); err != nil {
		return err
	}
	c.MarkModified()
	if c.onChange != nil {
		c.onChange(c.guard.Read())
	}
	return nil
}

// OnChange registers fn to be called after every accepted change. It must be set before serving.
func (c *ConfigStore) OnChange(fn func(threshold.Config)) {
	c.onChange = fn
}

// MarkModified schedules a write-back on the next PersistIfModified.
func (c *ConfigStore) MarkModified() {
	c.modified.Store(true)
}

// Modified reports whether a write-back is pending.
func (c *ConfigStore) Modified() bool {
	return c.modified.Load()
}

// PersistIfModified writes the thresholds to the database if they changed since the last write.
func (c *ConfigStore) PersistIfModified(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if !c.modified.Swap(false) {
		return nil
	}
	cfg := c.guard.Read()
	if err := c.store.SaveThresholds(ctx, cfg); err != nil {
		c.modified.Store(true)
		return err
	}
	c.log.Debug("thresholds persisted",
		zap.Int("tcrit_hi", cfg.HighAlarm), zap.Int("twarn_hi", cfg.HighWarn),
		zap.Int("tcrit_lo", cfg.LowAlarm), zap.Int("twarn_lo", cfg.LowWarn))
	return nil
}
