package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/store"
)

// Alarm is one device event announced to the outside world.
type Alarm struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Event        int       `json:"event"`
	Name         string    `json:"name"`
	Timestamp    time.Time `json:"-"`
}

// New builds an alarm for an event log entry.
func New(serial string, e store.Entry) Alarm {
	return Alarm{
		ID:           uuid.NewString(),
		SerialNumber: serial,
		Event:        e.Event,
		Name:         EventName(e.Event),
		Timestamp:    e.Timestamp,
	}
}

// MarshalJSON renders the timestamp in the device's wire layout.
func (a Alarm) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           string `json:"id"`
		SerialNumber string `json:"serial_number"`
		Event        int    `json:"event"`
		Name         string `json:"name"`
		Timestamp    string `json:"timestamp"`
	}{a.ID, a.SerialNumber, a.Event, a.Name, a.Timestamp.UTC().Format(device.TimestampLayout)})
}

// Notable reports whether an event code is announced to the master controller.
// Clock bookkeeping entries stay in the log only.
func Notable(code int) bool {
	return code == store.EventStartup || code == store.EventRestart
}

// Message is the human-readable text used for push notifications.
func (a Alarm) Message() string {
	return fmt.Sprintf("Sensor %s: %s at %s UTC", a.SerialNumber, a.Name, a.Timestamp.UTC().Format(device.TimestampLayout))
}

// EventName maps an event code to a stable name.
func EventName(code int) string {
	switch code {
	case store.EventStartup:
		return "startup"
	case store.EventTimeSet:
		return "time_set"
	case store.EventNewTime:
		return "new_time"
	case store.EventRestart:
		return "restart"
	}
	return fmt.Sprintf("event_%d", code)
}

// Sender delivers an alarm over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, a Alarm) error
}
