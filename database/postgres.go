package database

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clearview-consulting/backend/models"
)

func NewPostgresClient(host, user, password, dbname, port string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", host, user, password, dbname, port)

	pgClient, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := pgClient.AutoMigrate(
		&models.User{},
		&models.LoginEvent{},
		&models.Appointment{},
		&models.ContactMessage{},
	); err != nil {
		return nil, err
	}

	return pgClient, nil
}

// SeedAdmin ensures the single privileged account exists. It is created on
// first boot from ADMIN_EMAIL/ADMIN_PASSWORD and never touched afterwards.
func SeedAdmin(db *gorm.DB, email, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required to seed the admin account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        email,
		FullName:     "Administrator",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	return db.Create(&admin).Error
}
