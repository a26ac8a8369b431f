package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/middleware"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/mohnish10-leo/moxievault/internal/services"
	"github.com/mohnish10-leo/moxievault/internal/storage"
	"gorm.io/gorm"
)

// ObjectStore is the slice of the storage layer the file handler needs
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, path string) error
}

// allowedUploadTypes is the MIME allowlist for uploads
var allowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"text/plain":      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

type FileHandler struct {
	store ObjectStore
}

func NewFileHandler(store ObjectStore) *FileHandler {
	return &FileHandler{store: store}
}

// SignedAccessRequest is the shared request shape of the view and
// download endpoints. ExpiresIn is a pointer so an omitted value (use
// the default) can be told apart from an explicit zero (clamped up).
type SignedAccessRequest struct {
	VaultFileID string `json:"vaultFileId"`
	ShareToken  string `json:"shareToken"`
	ExpiresIn   *int   `json:"expiresIn"`
}

// View authorizes viewing a file and returns a signed URL
func (h *FileHandler) View(c *fiber.Ctx) error {
	return h.signedAccess(c, services.ActionView)
}

// Download authorizes downloading a file and returns a signed URL
func (h *FileHandler) Download(c *fiber.Ctx) error {
	return h.signedAccess(c, services.ActionDownload)
}

func (h *FileHandler) signedAccess(c *fiber.Ctx, action services.Action) error {
	var req SignedAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.VaultFileID = strings.TrimSpace(req.VaultFileID)
	req.ShareToken = strings.TrimSpace(req.ShareToken)
	userID := middleware.GetCurrentUserID(c)

	grant, err := services.Authorize(userID, req.VaultFileID, req.ShareToken, action)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFileID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid vaultFileId",
			})
		case errors.Is(err, services.ErrNotAllowed):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Not allowed",
			})
		default:
			log.Printf("Authorization failed for file %s: %v", req.VaultFileID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Authorization failed",
			})
		}
	}

	expiry := storage.DefaultExpiry
	if req.ExpiresIn != nil {
		expiry = storage.ClampExpiry(*req.ExpiresIn)
	}
	signedURL, err := h.store.PresignedURL(c.Context(), grant.StoragePath, expiry)
	if err != nil {
		log.Printf("Signed URL error for file %s: %v", req.VaultFileID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not create signed URL",
		})
	}

	return c.JSON(fiber.Map{
		"signedUrl":    signedURL,
		"originalName": grant.OriginalName,
		"vaultId":      grant.VaultID,
		"expiresIn":    int(expiry.Seconds()),
	})
}

// Upload stores a new file in a vault. Owner only; the object is
// written to storage before the metadata row is inserted.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	vaultID := c.Params("id")
	user := middleware.GetCurrentUser(c)

	var vault models.Vault
	if err := database.DB.Where("id = ?", vaultID).First(&vault).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if vault.OwnerID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "A file is required",
		})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unsupported file type",
		})
	}

	// Quota check before the object write. Advisory: two concurrent
	// uploads can race past it, which is accepted.
	usage, err := services.VaultUsage(vault.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to check vault usage",
		})
	}
	if usage+fileHeader.Size > models.MaxVaultBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Vault size limit exceeded (30 MB)",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read upload",
		})
	}
	defer src.Close()

	storagePath := storage.ObjectPath(user.ID, vault.ID, fileHeader.Filename)
	if err := h.store.Upload(c.Context(), storagePath, src, fileHeader.Size, contentType); err != nil {
		log.Printf("Object upload failed for vault %s: %v", vault.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store file",
		})
	}

	var count int64
	database.DB.Model(&models.VaultFile{}).Where("vault_id = ?", vault.ID).Count(&count)

	file := models.VaultFile{
		VaultID:      vault.ID,
		OwnerID:      vault.OwnerID,
		UploadedBy:   user.ID,
		StoragePath:  storagePath,
		OriginalName: fileHeader.Filename,
		SizeBytes:    fileHeader.Size,
		SortIndex:    int(count),
	}
	if err := database.DB.Create(&file).Error; err != nil {
		// Metadata insert failed after the object write; remove the
		// orphaned object best-effort
		if rmErr := h.store.Remove(c.Context(), storagePath); rmErr != nil {
			log.Printf("Failed to remove orphaned object %s: %v", storagePath, rmErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save file record",
		})
	}

	database.DB.Create(&models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      models.AuditActionFileUpload,
		EntityType:  "vault_file",
		EntityID:    file.ID,
		EntityName:  file.OriginalName,
		Description: "File uploaded to vault " + vault.Name,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// Reorder rewrites the sort order of a vault's files. The caller sends
// the complete list of live file IDs in the desired order; indexes are
// reassigned in one transaction.
func (h *FileHandler) Reorder(c *fiber.Ctx) error {
	vaultID := c.Params("id")
	user := middleware.GetCurrentUser(c)

	type ReorderRequest struct {
		FileIDs []string `json:"fileIds"`
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var vault models.Vault
	if err := database.DB.Where("id = ?", vaultID).First(&vault).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if vault.OwnerID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	files, err := services.LiveFiles(vault.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load files",
		})
	}

	if len(req.FileIDs) != len(files) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "File list does not match vault contents",
		})
	}
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.ID] = true
	}
	for _, id := range req.FileIDs {
		if !known[id] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "File list does not match vault contents",
			})
		}
		delete(known, id)
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		for idx, id := range req.FileIDs {
			if err := tx.Model(&models.VaultFile{}).Where("id = ?", id).Update("sort_index", idx).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save order",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order saved",
	})
}

// Delete soft-deletes a file and removes its object bytes best-effort.
// Once marked deleted the file disappears from listings and from
// authorization, even though the object may linger briefly.
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	fileID := c.Params("id")
	user := middleware.GetCurrentUser(c)

	var file models.VaultFile
	if err := database.DB.Where("id = ?", fileID).First(&file).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var vault models.Vault
	if err := database.DB.Where("id = ?", file.VaultID).First(&vault).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if vault.OwnerID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if err := database.DB.Model(&models.VaultFile{}).Where("id = ?", file.ID).Updates(map[string]interface{}{
		"deleted_at": time.Now(),
		"deleted_by": user.ID,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete file",
		})
	}

	// Best-effort object removal; the metadata update is authoritative
	if err := h.store.Remove(c.Context(), file.StoragePath); err != nil {
		log.Printf("Storage delete error for %s: %v", file.StoragePath, err)
	}

	database.DB.Create(&models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      models.AuditActionFileDelete,
		EntityType:  "vault_file",
		EntityID:    file.ID,
		EntityName:  file.OriginalName,
		Description: "File deleted from vault " + vault.Name,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
	})
}
