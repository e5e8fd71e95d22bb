package threshold

// TempState is the band the current temperature falls into.
type TempState int

const (
	LowCritical TempState = iota
	LowWarning
	Normal
	HighWarning
	HighCritical
)

// String renders the state the way it appears in device snapshots.
func (s TempState) String() string {
	switch s {
	case LowCritical:
		return "LOW_CRITICAL"
	case LowWarning:
		return "LOW_WARN"
	case Normal:
		return "NORMAL"
	case HighWarning:
		return "HIGH_WARN"
	}
	return "HIGH_CRITICAL"
}

// StateOf classifies t against cfg. Boundary values belong to the band
// further from normal: t == LowWarn is LowWarning and t == HighWarn is HighWarning.
func StateOf(t int, cfg Config) TempState {
	switch {
	case t <= cfg.LowAlarm:
		return LowCritical
	case t <= cfg.LowWarn:
		return LowWarning
	case t < cfg.HighWarn:
		return Normal
	case t < cfg.HighAlarm:
		return HighWarning
	default:
		return HighCritical
	}
}
