package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mohnish10-leo/moxievault/internal/config"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/middleware"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubStore is an in-memory ObjectStore for handler tests
type stubStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	presignFail bool
	uploadFail  bool
}

func newStubStore() *stubStore {
	return &stubStore{objects: make(map[string][]byte)}
}

func (s *stubStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if s.uploadFail {
		return fmt.Errorf("upload failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return nil
}

func (s *stubStore) PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if s.presignFail {
		return "", fmt.Errorf("presign failed")
	}
	return fmt.Sprintf("https://storage.test/%s?expires=%d", path, int(expiry.Seconds())), nil
}

func (s *stubStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *stubStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

type testEnv struct {
	app   *fiber.App
	cfg   *config.Config
	store *stubStore
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	database.DB = db
	database.Redis = nil

	attemptsMutex.Lock()
	loginAttempts = make(map[string]*LoginAttempt)
	attemptsMutex.Unlock()

	cfg := &config.Config{
		JWTSecret:      "test-secret-0123456789abcdef",
		JWTExpireHours: 1,
	}
	store := newStubStore()

	authHandler := NewAuthHandler(cfg)
	vaultHandler := NewVaultHandler()
	fileHandler := NewFileHandler(store)
	shareHandler := NewShareHandler()

	app := fiber.New()
	api := app.Group("/api")

	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	api.Post("/files/view", middleware.OptionalAuth(cfg), fileHandler.View)
	api.Post("/files/download", middleware.OptionalAuth(cfg), fileHandler.Download)

	api.Post("/access/token", shareHandler.VaultByToken)
	api.Get("/vaults/search", vaultHandler.Search)
	api.Get("/public/vaults/:name", vaultHandler.GetPublicByName)
	api.Get("/vaults/:id", middleware.OptionalAuth(cfg), vaultHandler.Get)

	protected := api.Group("", middleware.AuthRequired(cfg))
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Get("/vaults", vaultHandler.List)
	protected.Post("/vaults", vaultHandler.Create)
	protected.Put("/vaults/:id/privacy", vaultHandler.UpdatePrivacy)
	protected.Post("/vaults/:id/files", fileHandler.Upload)
	protected.Put("/vaults/:id/files/order", fileHandler.Reorder)
	protected.Delete("/files/:id", fileHandler.Delete)

	return &testEnv{app: app, cfg: cfg, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func asMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	m, ok := v.(map[string]interface{})
	require.True(t, ok, "expected object, got %T", v)
	return m
}

func (e *testEnv) register(t *testing.T, email string) (token, userID string) {
	t.Helper()
	resp := e.do(t, "POST", "/api/auth/register", fiber.Map{
		"email":    email,
		"password": "correct-horse-battery",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	token, _ = body["token"].(string)
	require.NotEmpty(t, token)
	userID, _ = asMap(t, body["user"])["id"].(string)
	require.NotEmpty(t, userID)
	return token, userID
}

func (e *testEnv) createVault(t *testing.T, token, name string, isPublic, allowDownloads bool) map[string]interface{} {
	t.Helper()
	resp := e.do(t, "POST", "/api/vaults", fiber.Map{
		"name":            name,
		"is_public":       isPublic,
		"allow_downloads": allowDownloads,
	}, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return asMap(t, decode(t, resp)["data"])
}

func (e *testEnv) upload(t *testing.T, token, vaultID, filename, contentType string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/vaults/"+vaultID+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
