package database

import (
	"log"

	"github.com/mohnish10-leo/moxievault/internal/config"
	"github.com/mohnish10-leo/moxievault/internal/models"
)

const jwtSecretKey = "jwt_secret"

// EnsureJWTSecret ensures the JWT secret is persisted in the database.
// If not present, saves the configured (or generated) secret. Returns the
// secret that should be used for signing.
func EnsureJWTSecret(cfg *config.Config) string {
	if DB == nil {
		log.Println("Warning: Database not connected, cannot persist JWT secret")
		return cfg.JWTSecret
	}

	var pref models.SystemPreference
	result := DB.Where("key = ?", jwtSecretKey).First(&pref)

	if result.Error == nil && pref.Value != "" {
		// Found existing secret in database
		log.Println("JWT secret loaded from database - sessions will persist across restarts")
		return pref.Value
	}

	secret := cfg.JWTSecret

	pref = models.SystemPreference{
		Key:       jwtSecretKey,
		Value:     secret,
		ValueType: "string",
	}

	if err := DB.Create(&pref).Error; err != nil {
		// Try update if create fails (race condition)
		DB.Model(&models.SystemPreference{}).Where("key = ?", jwtSecretKey).Update("value", secret)
	}

	log.Println("JWT secret generated and persisted to database")
	return secret
}
