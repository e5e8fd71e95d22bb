package model

import "time"

// EventRecord is one entry of the device event log.
// Seq preserves insertion order across write-backs.
type EventRecord struct {
	ID        int64     `gorm:"primaryKey"`
	Seq       int64     `gorm:"not null;uniqueIndex"`
	Timestamp time.Time `gorm:"not null"`
	Event     int       `gorm:"not null"`
}
