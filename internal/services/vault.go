package services

import (
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
)

// VaultUsage returns the total size in bytes of all live files in a
// vault. Soft-deleted files do not count against the quota.
func VaultUsage(vaultID string) (int64, error) {
	var total int64
	err := database.DB.Model(&models.VaultFile{}).
		Where("vault_id = ?", vaultID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

// LiveFiles returns a vault's non-deleted files in display order:
// sort index first, creation time as the tie-breaker.
func LiveFiles(vaultID string) ([]models.VaultFile, error) {
	var files []models.VaultFile
	err := database.DB.
		Where("vault_id = ?", vaultID).
		Order("sort_index ASC").
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}
