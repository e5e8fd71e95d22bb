package threshold

import (
	"errors"
	"fmt"
	"sync"
)

// Ceiling is the exclusive upper bound of every threshold value.
const Ceiling = 0x3FF

var (
	ErrOutOfOrder   = errors.New("threshold would break ordering")
	ErrAboveCeiling = errors.New("threshold at or above ceiling")
	ErrUnknownKind  = errors.New("unknown threshold kind")
)

// Kind identifies one of the four configured thresholds.
type Kind int

const (
	HighAlarm Kind = iota + 1
	HighWarn
	LowAlarm
	LowWarn
)

// Key returns the wire name of the threshold, as used in query strings and JSON.
func (k Kind) Key() string {
	switch k {
	case HighAlarm:
		return "tcrit_hi"
	case HighWarn:
		return "twarn_hi"
	case LowAlarm:
		return "tcrit_lo"
	case LowWarn:
		return "twarn_lo"
	}
	return "unknown"
}

func (k Kind) String() string { return k.Key() }

// Config holds the four temperature thresholds.
// The ordering LowAlarm < LowWarn < HighWarn < HighAlarm < Ceiling is kept by Apply.
type Config struct {
	HighAlarm int `json:"tcrit_hi" yaml:"tcrit_hi"`
	HighWarn  int `json:"twarn_hi" yaml:"twarn_hi"`
	LowAlarm  int `json:"tcrit_lo" yaml:"tcrit_lo"`
	LowWarn   int `json:"twarn_lo" yaml:"twarn_lo"`
}

// Valid reports whether c satisfies the full ordering invariant.
func (c Config) Valid() bool {
	return c.LowAlarm < c.LowWarn &&
		c.LowWarn < c.HighWarn &&
		c.HighWarn < c.HighAlarm &&
		c.HighAlarm < Ceiling
}

// Get returns the value of the given threshold.
func (c Config) Get(kind Kind) int {
	switch kind {
	case HighAlarm:
		return c.HighAlarm
	case HighWarn:
		return c.HighWarn
	case LowAlarm:
		return c.LowAlarm
	case LowWarn:
		return c.LowWarn
	}
	return 0
}

// Apply validates value against the current config and, if accepted, stores it
// in the field named by kind. A rejected value leaves cfg untouched.
//
// LowAlarm is only bounded from above; there is no floor below it.
func Apply(cfg *Config, kind Kind, value int) error {
	switch kind {
	case HighAlarm:
		if value >= Ceiling {
			return fmt.Errorf("%s=%d: %w", kind, value, ErrAboveCeiling)
		}
		if value <= cfg.HighWarn {
			return fmt.Errorf("%s=%d must be above %s=%d: %w", kind, value, HighWarn, cfg.HighWarn, ErrOutOfOrder)
		}
		cfg.HighAlarm = value
	case HighWarn:
		if value <= cfg.LowWarn || value >= cfg.HighAlarm {
			return fmt.Errorf("%s=%d must be within (%d, %d): %w", kind, value, cfg.LowWarn, cfg.HighAlarm, ErrOutOfOrder)
		}
		cfg.HighWarn = value
	case LowWarn:
		if value <= cfg.LowAlarm || value >= cfg.HighWarn {
			return fmt.Errorf("%s=%d must be within (%d, %d): %w", kind, value, cfg.LowAlarm, cfg.HighWarn, ErrOutOfOrder)
		}
		cfg.LowWarn = value
	case LowAlarm:
		if value >= cfg.LowWarn {
			return fmt.Errorf("%s=%d must be below %s=%d: %w", kind, value, LowWarn, cfg.LowWarn, ErrOutOfOrder)
		}
		cfg.LowAlarm = value
	default:
		return fmt.Errorf("kind %d: %w", int(kind), ErrUnknownKind)
	}
	return nil
}

// Guard owns the live threshold config for the lifetime of the process.
// Concurrent connections go through it so that check-then-mutate is atomic.
type Guard struct {
	mu  sync.Mutex
	cfg Config
}

// NewGuard creates a Guard seeded with cfg.
func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// Read returns a copy of the current config.
func (g *Guard) Read() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// Apply runs the validation engine against the guarded config as one critical section.
func (g *Guard) Apply(kind Kind, value int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Apply(&g.cfg, kind, value)
}
