package model

import "time"

// DeviceIdentity holds the vital product data. There is one row, ID 1.
type DeviceIdentity struct {
	ID              int64     `gorm:"primaryKey"`
	Model           string    `gorm:"size:64;not null"`
	Manufacturer    string    `gorm:"size:64;not null"`
	SerialNumber    string    `gorm:"size:64;not null"`
	ManufactureDate time.Time `gorm:"not null"`
	MACAddress      string    `gorm:"size:17;not null"`
	CountryCode     string    `gorm:"size:3"`
	CreatedAt       time.Time `gorm:"not null"`
}
