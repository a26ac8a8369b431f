package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that can own vaults
type User struct {
	ID               string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email            string         `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password         string         `gorm:"column:password;size:255;not null" json:"-"`
	IsActive         bool           `gorm:"column:is_active;default:true" json:"is_active"`
	TwoFactorEnabled bool           `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string         `gorm:"column:two_factor_secret;size:64" json:"-"`
	LastLogin        *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
