package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/mohnish10-leo/moxievault/internal/services"
)

const minShareTokenLength = 16

type ShareHandler struct{}

func NewShareHandler() *ShareHandler {
	return &ShareHandler{}
}

// VaultByToken resolves a share token to its vault and files. Unknown
// tokens get a uniform denial. Only the token→vault resolution is
// cached; the file list is always read fresh so uploads and deletions
// show up in lookups immediately. The cache entry is dropped when the
// vault retires or changes its token.
func (h *ShareHandler) VaultByToken(c *fiber.Ctx) error {
	type TokenRequest struct {
		Token string `json:"token"`
	}

	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	token := strings.TrimSpace(req.Token)
	if len(token) < minShareTokenLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid token",
		})
	}

	var vault models.Vault
	cached := false
	if database.Redis != nil {
		if err := database.CacheGet(database.CacheKeyShareToken+token, &vault); err == nil {
			cached = true
		}
	}

	if !cached {
		if err := database.DB.Where("share_token = ?", token).First(&vault).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Access denied",
			})
		}
		if database.Redis != nil {
			database.CacheSet(database.CacheKeyShareToken+token, vault, database.CacheTTLShareToken)
		}
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
