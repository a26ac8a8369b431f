package services

import (
	"testing"
	"time"

	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultUsageIgnoresDeletedFiles(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, false, false)

	a := createFile(t, vault, "a.pdf")
	b := createFile(t, vault, "b.pdf")
	require.NoError(t, database.DB.Model(a).Update("size_bytes", 5*1024*1024).Error)
	require.NoError(t, database.DB.Model(b).Update("size_bytes", 3*1024*1024).Error)

	usage, err := VaultUsage(vault.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024), usage)

	require.NoError(t, database.DB.Delete(&models.VaultFile{}, "id = ?", b.ID).Error)

	usage, err = VaultUsage(vault.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5*1024*1024), usage)
}

func TestLiveFilesOrdering(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, false, false)

	first := createFile(t, vault, "first.pdf")
	second := createFile(t, vault, "second.pdf")
	third := createFile(t, vault, "third.pdf")

	// second sorts ahead of first; third is deleted and disappears
	require.NoError(t, database.DB.Model(first).Update("sort_index", 1).Error)
	require.NoError(t, database.DB.Model(second).Update("sort_index", 0).Error)
	require.NoError(t, database.DB.Delete(&models.VaultFile{}, "id = ?", third.ID).Error)

	files, err := LiveFiles(vault.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, second.ID, files[0].ID)
	assert.Equal(t, first.ID, files[1].ID)
}

func TestLiveFilesCreationTimeBreaksTies(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, false, false)

	older := createFile(t, vault, "older.pdf")
	newer := createFile(t, vault, "newer.pdf")
	require.NoError(t, database.DB.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)

	files, err := LiveFiles(vault.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, older.ID, files[0].ID)
	assert.Equal(t, newer.ID, files[1].ID)
}
