package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmoura/notara-go/internal/ai"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
)

func newTestStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, model := range []any{
		&datastore.User{}, &datastore.Session{}, &datastore.Category{},
		&datastore.Note{}, &datastore.Insight{}, &datastore.UsageLog{}, &datastore.MediaFile{},
	} {
		require.NoError(t, db.AutoMigrate(model))
	}
	return &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *datastore.SQLiteStore) {
	t.Helper()

	store := newTestStore(t)
	settings := &conf.Settings{}
	settings.Quota.FreeDailyLimit = 5

	processor := ai.New(settings, store, nil, nil, nil)
	controller, err := New(echo.New(), store, settings, processor,
		log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	for _, opt := range opts {
		opt(controller)
	}
	return controller, store
}

// doRequest runs one request through the echo instance and decodes the JSON
// response body.
func doRequest(t *testing.T, c *Controller, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

// registerUser registers an account and returns its access token.
func registerUser(t *testing.T, c *Controller) (token, userID string) {
	t.Helper()

	code, body := doRequest(t, c, http.MethodPost, "/api/v2/auth/register", "", map[string]any{
		"email":    fmt.Sprintf("%s@example.com", t.Name()),
		"password": "Senha123",
		"name":     "Tester",
	})
	require.Equal(t, http.StatusCreated, code)

	token, _ = body["access_token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	userID, _ = user["id"].(string)
	require.NotEmpty(t, userID)
	return token, userID
}

func seedUserRecord(t *testing.T, store *datastore.SQLiteStore, email string) datastore.User {
	t.Helper()

	user := datastore.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(&user))
	return user
}

func TestHealthCheck(t *testing.T) {
	controller, _ := newTestController(t)

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])
}
