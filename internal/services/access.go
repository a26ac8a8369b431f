package services

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"gorm.io/gorm"
)

// Action selects which permission branch of the access policy applies.
// View and download requests have identical shape; downloads additionally
// require the vault's download flag for non-owners.
type Action int

const (
	ActionView Action = iota
	ActionDownload
)

var (
	// ErrInvalidFileID means the file identifier is not UUID-shaped.
	// Returned before any store is consulted.
	ErrInvalidFileID = errors.New("invalid vault file id")

	// ErrNotAllowed is the uniform denial. Callers cannot tell a missing
	// or deleted file apart from one they lack access to.
	ErrNotAllowed = errors.New("not allowed")
)

var vaultFileIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

// AccessGrant is the result of a successful authorization decision
type AccessGrant struct {
	Allowed      bool
	StoragePath  string
	OriginalName string
	VaultID      string
}

// Authorize decides whether a caller may access a single file.
//
// userID is the resolved identity, or empty for anonymous callers.
// shareToken is the opaque token presented by callers to a private
// vault, or empty.
//
// Policy: soft-deleted files deny everyone. The vault owner is always
// allowed, regardless of visibility or the download flag. Public vaults
// allow viewing to anyone; downloading requires AllowDownloads. Private
// vaults require the exact current share token, with downloads again
// gated on AllowDownloads.
func Authorize(userID, vaultFileID, shareToken string, action Action) (*AccessGrant, error) {
	if !vaultFileIDPattern.MatchString(vaultFileID) {
		return nil, ErrInvalidFileID
	}

	// Soft-deleted files are filtered out here, so they surface as the
	// same uniform denial as files that never existed.
	var file models.VaultFile
	if err := database.DB.Where("id = ?", vaultFileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAllowed
		}
		return nil, fmt.Errorf("load vault file: %w", err)
	}

	var vault models.Vault
	if err := database.DB.Where("id = ?", file.VaultID).First(&vault).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAllowed
		}
		return nil, fmt.Errorf("load vault: %w", err)
	}

	grant := &AccessGrant{
		Allowed:      true,
		StoragePath:  file.StoragePath,
		OriginalName: file.OriginalName,
		VaultID:      vault.ID,
	}

	// Owner bypasses visibility and download restrictions
	if userID != "" && userID == vault.OwnerID {
		return grant, nil
	}

	allowed := false
	switch {
	case vault.IsPublic:
		allowed = true
	case shareToken != "" && vault.ShareToken != "" && shareToken == vault.ShareToken:
		allowed = true
	}

	if !allowed {
		return nil, ErrNotAllowed
	}

	if action == ActionDownload && !vault.AllowDownloads {
		return nil, ErrNotAllowed
	}

	return grant, nil
}
