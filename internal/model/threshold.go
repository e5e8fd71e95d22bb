package model

import "time"

// ThresholdRecord is the persisted copy of the threshold config. There is one row, ID 1.
type ThresholdRecord struct {
	ID        int64     `gorm:"primaryKey"`
	HighAlarm int       `gorm:"not null"`
	HighWarn  int       `gorm:"not null"`
	LowAlarm  int       `gorm:"not null"`
	LowWarn   int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
