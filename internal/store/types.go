package store

import "time"

// Event codes recorded in the device event log.
const (
	EventStartup = 1
	EventTimeSet = 2
	EventNewTime = 3
	EventRestart = 4
)

// Entry is one record of the event log.
type Entry struct {
	Seq       int64
	Timestamp time.Time
	Event     int
}
