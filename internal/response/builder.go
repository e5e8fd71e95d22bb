package response

import (
	"io"
	"time"

	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/threshold"
)

const (
	crlf        = "\r\n"
	statusOK    = "HTTP/1.1 200 OK" + crlf
	statusBad   = "HTTP/1.1 400 BAD REQUEST" + crlf
	contentType = "Content-Type: application/vnd.api+json" + crlf

	// ContentType is the media type of snapshot bodies.
	ContentType = "application/vnd.api+json"
)

// Status is the outcome of a request as seen by the client.
type Status int

const (
	OK Status = iota
	BadRequest
)

// Code returns the HTTP status code.
func (s Status) Code() int {
	if s == OK {
		return 200
	}
	return 400
}

// LogEntry is one record of the event log.
type LogEntry struct {
	Timestamp time.Time
	Event     int
}

// Snapshot is a read-only view of the device at one point in time.
type Snapshot struct {
	Identity    device.Identity
	Thresholds  threshold.Config
	Temperature int
	State       threshold.TempState
	Log         []LogEntry
}

// Outcome decides which response shape is emitted. A non-nil Snapshot is only
// honoured together with OK.
type Outcome struct {
	Status   Status
	Snapshot *Snapshot
}

// Build writes the response for o to w. It returns once the response has been
// handed to w; closing the connection is left to the caller.
func Build(w io.Writer, o Outcome) error {
	out := NewWriter(w)
	if o.Status == OK && o.Snapshot != nil {
		out.WriteRaw(statusOK)
		out.WriteRaw(contentType)
		out.WriteRaw(crlf)
		WriteSnapshot(out, o.Snapshot)
		out.WriteRaw(crlf)
		return out.Flush()
	}

	if o.Status == OK {
		out.WriteRaw(statusOK)
	} else {
		out.WriteRaw(statusBad)
	}
	out.WriteRaw(crlf)
	return out.Flush()
}

// WriteSnapshot writes the JSON object for snap with its fixed key order.
func WriteSnapshot(out *Writer, snap *Snapshot) {
	id := snap.Identity

	out.WriteRaw("{")
	out.WriteQuoted("vpd")
	out.WriteRaw(":{")
	field(out, "model")
	out.WriteQuoted(id.Model)
	out.WriteRaw(",")
	field(out, "manufacturer")
	out.WriteQuoted(id.Manufacturer)
	out.WriteRaw(",")
	field(out, "serial_number")
	out.WriteQuoted(id.SerialNumber)
	out.WriteRaw(",")
	field(out, "manufacture_date")
	out.WriteDate(id.ManufactureDate)
	out.WriteRaw(",")
	field(out, "mac_address")
	out.WriteMAC(id.MAC)
	out.WriteRaw(",")
	field(out, "country_code")
	out.WriteQuoted(id.CountryCode)
	out.WriteRaw("},")

	for _, k := range []threshold.Kind{threshold.HighAlarm, threshold.HighWarn, threshold.LowAlarm, threshold.LowWarn} {
		field(out, k.Key())
		out.WriteDecimal(snap.Thresholds.Get(k))
		out.WriteRaw(",")
	}

	field(out, "temperature")
	out.WriteDecimal(snap.Temperature)
	out.WriteRaw(",")
	field(out, "state")
	out.WriteQuoted(snap.State.String())
	out.WriteRaw(",")

	field(out, "log")
	out.WriteRaw("[")
	for i, e := range snap.Log {
		if i > 0 {
			out.WriteRaw(",")
		}
		out.WriteRaw("{")
		field(out, "timestamp")
		out.WriteTimestamp(e.Timestamp)
		out.WriteRaw(",")
		field(out, "event")
		out.WriteDecimal(e.Event)
		out.WriteRaw("}")
	}
	out.WriteRaw("]}")
}

func field(out *Writer, name string) {
	out.WriteQuoted(name)
	out.WriteRaw(":")
}
