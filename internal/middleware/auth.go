package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mohnish10-leo/moxievault/internal/config"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/models"
)

// JWTClaims represents JWT token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token
func GenerateToken(user *models.User, cfg *config.Config) (string, error) {
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.JWTExpireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "moxievault",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// parseBearer extracts and validates the bearer token from the
// Authorization header. Returns the active user, or nil when the header
// is missing, malformed, revoked, or references a disabled account.
func parseBearer(c *fiber.Ctx, cfg *config.Config) (*models.User, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ""
	}

	tokenString := parts[1]

	// Check if token is blacklisted (user logged out)
	if database.IsTokenBlacklisted(tokenString) {
		return nil, ""
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ""
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, ""
	}

	var user models.User
	if err := database.DB.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		return nil, ""
	}

	if !user.IsActive {
		return nil, ""
	}

	return &user, tokenString
}

// AuthRequired middleware to protect routes
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, token := parseBearer(c, cfg)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or missing authorization",
			})
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		c.Locals("token", token)

		return c.Next()
	}
}

// OptionalAuth resolves the caller's identity when a valid bearer token
// is present and otherwise continues as anonymous. Identity resolution
// failure is never an error here so public and token-based access paths
// still work.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, token := parseBearer(c, cfg); user != nil {
			c.Locals("user", user)
			c.Locals("userID", user.ID)
			c.Locals("token", token)
		}
		return c.Next()
	}
}

// GetCurrentUser returns the current user from context
func GetCurrentUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentUserID returns the current user ID from context, or empty
// for anonymous callers
func GetCurrentUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

// GetCurrentToken returns the raw bearer token from context
func GetCurrentToken(c *fiber.Ctx) string {
	token, ok := c.Locals("token").(string)
	if !ok {
		return ""
	}
	return token
}
