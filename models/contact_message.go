package models

import (
	"time"
)

type ContactMessage struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Subject   string
	Message   string `gorm:"not null"`
	Handled   bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
