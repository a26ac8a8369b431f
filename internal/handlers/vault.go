package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/middleware"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/mohnish10-leo/moxievault/internal/services"
)

type VaultHandler struct{}

func NewVaultHandler() *VaultHandler {
	return &VaultHandler{}
}

// vaultDetail is the owner-facing shape of a vault. The share token is
// only ever populated for the owner of a private vault.
type vaultDetail struct {
	*models.Vault
	ShareToken string `json:"share_token,omitempty"`
}

func ownerVaultDetail(vault *models.Vault, isOwner bool) vaultDetail {
	detail := vaultDetail{Vault: vault}
	if isOwner && !vault.IsPublic {
		detail.ShareToken = vault.ShareToken
	}
	return detail
}

// List returns the current user's vaults, newest first
func (h *VaultHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var vaults []models.Vault
	if err := database.DB.Where("owner_id = ?", userID).Order("created_at DESC").Find(&vaults).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load vaults",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    vaults,
	})
}

// Create creates a new vault. Names are globally unique so public
// vaults can be discovered by name.
func (h *VaultHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	type CreateRequest struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		IsPublic       bool   `json:"is_public"`
		AllowDownloads bool   `json:"allow_downloads"`
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Vault name is required",
		})
	}

	var exists int64
	database.DB.Model(&models.Vault{}).Where("name = ?", req.Name).Count(&exists)
	if exists > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Vault name already taken",
		})
	}

	vault := models.Vault{
		OwnerID:        user.ID,
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		IsPublic:       req.IsPublic,
		AllowDownloads: req.AllowDownloads,
	}
	if err := database.DB.Create(&vault).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create vault",
		})
	}

	database.DB.Create(&models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      models.AuditActionVaultCreate,
		EntityType:  "vault",
		EntityID:    vault.ID,
		EntityName:  vault.Name,
		Description: "Vault created",
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    ownerVaultDetail(&vault, true),
	})
}

// Get returns a vault with its live files. Owners see everything
// including the share token; everyone else only sees public vaults.
// Missing and private look identical to non-owners.
func (h *VaultHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	userID := middleware.GetCurrentUserID(c)

	var vault models.Vault
	if err := database.DB.Where("id = ?", id).First(&vault).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	isOwner := userID != "" && userID == vault.OwnerID
	if !isOwner && !vault.IsPublic {
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

	usage, err := services.VaultUsage(vault.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load vault usage",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"vault":       ownerVaultDetail(&vault, isOwner),
			"files":       files,
			"used_bytes":  usage,
			"quota_bytes": models.MaxVaultBytes,
			"is_owner":    isOwner,
		},
	})
}

// UpdatePrivacy toggles a vault's visibility or download flag. When a
// vault goes from public to private a fresh share token is issued; any
// previously distributed token stops working immediately.
func (h *VaultHandler) UpdatePrivacy(c *fiber.Ctx) error {
	id := c.Params("id")
	user := middleware.GetCurrentUser(c)

	type PrivacyRequest struct {
		IsPublic       *bool `json:"is_public"`
		AllowDownloads *bool `json:"allow_downloads"`
	}

	var req PrivacyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.IsPublic == nil && req.AllowDownloads == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Nothing to update",
		})
	}

	var vault models.Vault
	if err := database.DB.Where("id = ?", id).First(&vault).Error; err != nil {
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

	updates := map[string]interface{}{}
	tokenRegenerated := false
	oldToken := vault.ShareToken

	if req.AllowDownloads != nil {
		updates["allow_downloads"] = *req.AllowDownloads
		vault.AllowDownloads = *req.AllowDownloads
	}

	if req.IsPublic != nil {
		if vault.IsPublic && !*req.IsPublic {
			// Going private: issue a fresh token so any previously
			// shared one is invalidated
			vault.ShareToken = models.NewShareToken()
			updates["share_token"] = vault.ShareToken
			tokenRegenerated = true
		}
		updates["is_public"] = *req.IsPublic
		vault.IsPublic = *req.IsPublic
	}

	if err := database.DB.Model(&models.Vault{}).Where("id = ?", vault.ID).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update vault",
		})
	}

	// Cache entries are dropped only after the row is committed; doing it
	// earlier lets a concurrent lookup repopulate them from the old state.
	if tokenRegenerated {
		database.InvalidateShareTokenCache(oldToken)
	}
	database.InvalidateShareTokenCache(vault.ShareToken)

	action := models.AuditActionVaultUpdate
	description := "Vault privacy updated"
	if tokenRegenerated {
		action = models.AuditActionTokenRegenerate
		description = "Vault went private, share token regenerated"
	}
	database.DB.Create(&models.AuditLog{
		UserID:      user.ID,
		Email:       user.Email,
		Action:      action,
		EntityType:  "vault",
		EntityID:    vault.ID,
		EntityName:  vault.Name,
		Description: description,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data":    ownerVaultDetail(&vault, true),
	})
}

// Search finds vaults by name fragment. Private matches are listed so
// their owners can hand out tokens, but carry no token themselves.
func (h *VaultHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 20 {
		limit = 20
	}

	if query == "" {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    []models.Vault{},
		})
	}

	var vaults []models.Vault
	pattern := "%" + strings.ToLower(query) + "%"
	if err := database.DB.
		Where("LOWER(name) LIKE ?", pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&vaults).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    vaults,
	})
}

// GetPublicByName returns a public vault and its files by unique name.
// Private vaults are indistinguishable from missing ones here.
func (h *VaultHandler) GetPublicByName(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))

	var vault models.Vault
	if err := database.DB.Where("name = ? AND is_public = ?", name, true).First(&vault).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Vault not found",
		})
	}

	files, err := services.LiveFiles(vault.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load files",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"vault": vault,
			"files": files,
		},
	})
}
