package models

import (
	"time"
)

// LoginEvent is an audit record written on every successful login.
type LoginEvent struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;index"`
	IPAddress string
	UserAgent string
	Location  string
	CreatedAt time.Time
	User      User `gorm:"foreignkey:UserID"`
}
