package models

import (
	"time"
)

// Audit actions
const (
	AuditActionLogin           = "login"
	AuditActionLogout          = "logout"
	AuditActionRegister        = "register"
	AuditActionVaultCreate     = "vault_create"
	AuditActionVaultUpdate     = "vault_update"
	AuditActionTokenRegenerate = "token_regenerate"
	AuditActionFileUpload      = "file_upload"
	AuditActionFileDelete      = "file_delete"
)

// AuditLog records security-relevant actions
type AuditLog struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Email       string    `gorm:"column:email;size:255" json:"email"`
	Action      string    `gorm:"column:action;size:50;index;not null" json:"action"`
	EntityType  string    `gorm:"column:entity_type;size:50" json:"entity_type"`
	EntityID    string    `gorm:"column:entity_id;size:64" json:"entity_id"`
	EntityName  string    `gorm:"column:entity_name;size:255" json:"entity_name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	IPAddress   string    `gorm:"column:ip_address;size:64" json:"ip_address"`
	UserAgent   string    `gorm:"column:user_agent;size:512" json:"user_agent"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
