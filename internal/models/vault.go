package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxVaultBytes is the per-vault storage quota (30 MiB). Enforced at
// upload time against the sum of live file sizes; advisory, not
// transactional.
const MaxVaultBytes int64 = 30 * 1024 * 1024

// Vault represents a named collection of files. Names are globally
// unique so public vaults can be looked up by name.
type Vault struct {
	ID             string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID        string    `gorm:"column:owner_id;type:uuid;index;not null" json:"owner_id"`
	Name           string    `gorm:"column:name;uniqueIndex;size:120;not null" json:"name"`
	Description    string    `gorm:"column:description;type:text" json:"description"`
	IsPublic       bool      `gorm:"column:is_public;default:false" json:"is_public"`
	AllowDownloads bool      `gorm:"column:allow_downloads;default:false" json:"allow_downloads"`
	ShareToken     string    `gorm:"column:share_token;size:64;index" json:"-"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Vault) TableName() string {
	return "vaults"
}

func (v *Vault) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if !v.IsPublic && v.ShareToken == "" {
		v.ShareToken = NewShareToken()
	}
	return nil
}

// NewShareToken returns a fresh opaque access token (32 hex characters).
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// VaultFile represents a single stored object inside a vault. A
// soft-deleted file is excluded from listings and from authorization;
// the object bytes are removed from storage best-effort afterwards.
type VaultFile struct {
	ID           string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VaultID      string         `gorm:"column:vault_id;type:uuid;index;not null" json:"vault_id"`
	OwnerID      string         `gorm:"column:owner_id;type:uuid;index;not null" json:"owner_id"`
	UploadedBy   string         `gorm:"column:uploaded_by;type:uuid;not null" json:"uploaded_by"`
	StoragePath  string         `gorm:"column:storage_path;size:512;not null" json:"-"`
	OriginalName string         `gorm:"column:original_name;size:512" json:"original_name"`
	SizeBytes    int64          `gorm:"column:size_bytes;not null" json:"size_bytes"`
	SortIndex    int            `gorm:"column:sort_index;default:0" json:"sort_index"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
	DeletedBy    *string        `gorm:"column:deleted_by;type:uuid" json:"-"`
}

func (VaultFile) TableName() string {
	return "vault_files"
}

func (f *VaultFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
