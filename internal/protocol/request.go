package protocol

import (
	"fmt"

	"sensor-endpoint/internal/threshold"
)

// RequestType tags which variant of Request is active.
type RequestType int

const (
	Invalid RequestType = iota
	ReadDevice
	SetThreshold
	SetRestartFlag
	ClearLog
)

func (t RequestType) String() string {
	switch t {
	case ReadDevice:
		return "read_device"
	case SetThreshold:
		return "set_threshold"
	case SetRestartFlag:
		return "set_restart_flag"
	case ClearLog:
		return "clear_log"
	}
	return "invalid"
}

// Request is one classified request. Only the fields belonging to Type are meaningful.
type Request struct {
	Type RequestType

	// SetThreshold
	Threshold threshold.Kind
	Value     int
	HasValue  bool

	// SetRestartFlag
	Restart bool
}

func (r Request) String() string {
	switch r.Type {
	case SetThreshold:
		if !r.HasValue {
			return fmt.Sprintf("%s(%s=<missing>)", r.Type, r.Threshold)
		}
		return fmt.Sprintf("%s(%s=%d)", r.Type, r.Threshold, r.Value)
	case SetRestartFlag:
		return fmt.Sprintf("%s(%t)", r.Type, r.Restart)
	}
	return r.Type.String()
}
