package models

import (
	"time"
)

// Appointment statuses.
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;index"`
	SlotTime  time.Time
	Topic     string
	Notes     string
	Status    string `gorm:"not null;default:pending"`
	CreatedAt time.Time
	UpdatedAt time.Time
	User      User `gorm:"foreignkey:UserID"`
}
