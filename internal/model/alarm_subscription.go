package model

import "time"

// AlarmSubscription holds the information for a browser push subscription
// that receives device alarms.
type AlarmSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
