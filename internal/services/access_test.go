package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	database.DB = db
}

func createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func createVault(t *testing.T, owner *models.User, isPublic, allowDownloads bool) *models.Vault {
	t.Helper()
	vault := &models.Vault{
		OwnerID:        owner.ID,
		Name:           "vault-" + uuid.NewString(),
		IsPublic:       isPublic,
		AllowDownloads: allowDownloads,
	}
	if !isPublic {
		vault.ShareToken = models.NewShareToken()
	}
	require.NoError(t, database.DB.Create(vault).Error)
	return vault
}

func createFile(t *testing.T, vault *models.Vault, name string) *models.VaultFile {
	t.Helper()
	file := &models.VaultFile{
		VaultID:      vault.ID,
		OwnerID:      vault.OwnerID,
		UploadedBy:   vault.OwnerID,
		StoragePath:  vault.OwnerID + "/" + vault.ID + "/" + uuid.NewString() + ".pdf",
		OriginalName: name,
		SizeBytes:    1024,
	}
	require.NoError(t, database.DB.Create(file).Error)
	return file
}

func TestAuthorizeOwnerAlwaysAllowed(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, false, false) // private, downloads off
	file := createFile(t, vault, "report.pdf")

	for _, action := range []Action{ActionView, ActionDownload} {
		grant, err := Authorize(owner.ID, file.ID, "some-bogus-token-value", action)
		require.NoError(t, err)
		assert.True(t, grant.Allowed)
		assert.Equal(t, file.StoragePath, grant.StoragePath)
		assert.Equal(t, "report.pdf", grant.OriginalName)
		assert.Equal(t, vault.ID, grant.VaultID)
	}
}

func TestAuthorizePublicVault(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	stranger := createUser(t, "stranger@example.com")
	vault := createVault(t, owner, true, false) // public, downloads off
	file := createFile(t, vault, "photo.png")

	// Anyone can view
	grant, err := Authorize("", file.ID, "", ActionView)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)

	grant, err = Authorize(stranger.ID, file.ID, "", ActionView)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)

	// Downloads stay gated on the flag for non-owners
	_, err = Authorize(stranger.ID, file.ID, "", ActionDownload)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Authorize("", file.ID, "", ActionDownload)
	assert.ErrorIs(t, err, ErrNotAllowed)

	require.NoError(t, database.DB.Model(vault).Update("allow_downloads", true).Error)

	grant, err = Authorize("", file.ID, "", ActionDownload)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)
}

func TestAuthorizePrivateVault(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	stranger := createUser(t, "stranger@example.com")
	vault := createVault(t, owner, false, false) // private, downloads off
	file := createFile(t, vault, "notes.txt")

	// No token: denied for anonymous and for other users
	_, err := Authorize("", file.ID, "", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Authorize(stranger.ID, file.ID, "", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)

	// Wrong token: denied
	_, err = Authorize("", file.ID, "definitely-not-the-token", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)

	// Correct token: view allowed, download still follows the flag
	grant, err := Authorize("", file.ID, vault.ShareToken, ActionView)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)

	_, err = Authorize("", file.ID, vault.ShareToken, ActionDownload)
	assert.ErrorIs(t, err, ErrNotAllowed)

	require.NoError(t, database.DB.Model(vault).Update("allow_downloads", true).Error)

	grant, err = Authorize("", file.ID, vault.ShareToken, ActionDownload)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)
}

func TestAuthorizeStaleTokenAfterRegeneration(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, false, true)
	file := createFile(t, vault, "shared.pdf")

	oldToken := vault.ShareToken
	grant, err := Authorize("", file.ID, oldToken, ActionView)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)

	// Regenerating the token invalidates the old one immediately
	newToken := models.NewShareToken()
	require.NoError(t, database.DB.Model(vault).Update("share_token", newToken).Error)

	_, err = Authorize("", file.ID, oldToken, ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Authorize("", file.ID, oldToken, ActionDownload)
	assert.ErrorIs(t, err, ErrNotAllowed)

	grant, err = Authorize("", file.ID, newToken, ActionView)
	require.NoError(t, err)
	assert.True(t, grant.Allowed)
}

func TestAuthorizeSoftDeletedFile(t *testing.T) {
	setupDB(t)
	owner := createUser(t, "owner@example.com")
	vault := createVault(t, owner, true, true) // fully open
	file := createFile(t, vault, "gone.pdf")

	require.NoError(t, database.DB.Delete(&models.VaultFile{}, "id = ?", file.ID).Error)

	// Even the owner is denied once the file is soft-deleted
	_, err := Authorize(owner.ID, file.ID, "", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Authorize(owner.ID, file.ID, "", ActionDownload)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Authorize("", file.ID, "", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestAuthorizeUnknownFile(t *testing.T) {
	setupDB(t)

	_, err := Authorize("", uuid.NewString(), "", ActionView)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestAuthorizeMalformedIDSkipsStore(t *testing.T) {
	// A nil DB would panic on any query; the validation failure must
	// happen before the store is touched.
	prev := database.DB
	database.DB = nil
	defer func() { database.DB = prev }()

	for _, id := range []string{"", "not-a-uuid", "12345", strings.Repeat("g", 36), strings.Repeat("a", 37)} {
		_, err := Authorize("", id, "", ActionView)
		assert.ErrorIs(t, err, ErrInvalidFileID, "id %q", id)
		_, err = Authorize("", id, "", ActionDownload)
		assert.ErrorIs(t, err, ErrInvalidFileID, "id %q", id)
	}
}
