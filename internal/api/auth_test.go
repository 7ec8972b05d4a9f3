package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesDefaultCategories(t *testing.T) {
	controller, store := newTestController(t)

	token, userID := registerUser(t, controller)

	categories, err := store.GetCategories(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, userID, user["id"])
}

func TestRegisterValidation(t *testing.T) {
	controller, _ := newTestController(t)

	tests := []struct {
		name    string
		payload map[string]any
		message string
	}{
		{
			name:    "missing fields",
			payload: map[string]any{"email": "a@b.com"},
			message: "Email e senha são obrigatórios",
		},
		{
			name:    "bad email",
			payload: map[string]any{"email": "not-an-email", "password": "Senha123"},
			message: "Formato de email inválido",
		},
		{
			name:    "short password",
			payload: map[string]any{"email": "a@b.com", "password": "Ab1"},
			message: "Senha deve ter pelo menos 8 caracteres",
		},
		{
			name:    "no uppercase",
			payload: map[string]any{"email": "a@b.com", "password": "senha123"},
			message: "Senha deve conter pelo menos uma letra maiúscula",
		},
		{
			name:    "no digit",
			payload: map[string]any{"email": "a@b.com", "password": "SenhaForte"},
			message: "Senha deve conter pelo menos um número",
		},
		{
			name:    "bad phone",
			payload: map[string]any{"email": "a@b.com", "password": "Senha123", "phone": "123"},
			message: "Formato de telefone inválido",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := doRequest(t, controller, http.MethodPost, "/api/v2/auth/register", "", tc.payload)
			require.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	controller, _ := newTestController(t)

	payload := map[string]any{"email": "dup@example.com", "password": "Senha123"}
	code, _ := doRequest(t, controller, http.MethodPost, "/api/v2/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, code)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/auth/register", "", payload)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email já cadastrado", body["message"])
}

func TestLogin(t *testing.T) {
	controller, store := newTestController(t)
	_, userID := registerUser(t, controller)

	email := t.Name() + "@example.com"
	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/auth/login", "", map[string]any{
		"email":    email,
		"password": "Senha123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["access_token"])

	code, body = doRequest(t, controller, http.MethodPost, "/api/v2/auth/login", "", map[string]any{
		"email":    email,
		"password": "Errada123",
	})
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Credenciais inválidas", body["message"])

	user, err := store.GetUser(userID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, store.UpdateUser(&user))

	code, body = doRequest(t, controller, http.MethodPost, "/api/v2/auth/login", "", map[string]any{
		"email":    email,
		"password": "Senha123",
	})
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Conta desativada", body["message"])
}

func TestAuthMiddleware(t *testing.T) {
	controller, _ := newTestController(t)

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token de acesso requerido", body["message"])

	code, body = doRequest(t, controller, http.MethodGet, "/api/v2/auth/me", "not-a-real-token", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token inválido", body["message"])
}

func TestLogoutInvalidatesToken(t *testing.T) {
	controller, _ := newTestController(t)
	token, _ := registerUser(t, controller)

	code, _ := doRequest(t, controller, http.MethodPost, "/api/v2/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = doRequest(t, controller, http.MethodGet, "/api/v2/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLinkWhatsApp(t *testing.T) {
	controller, store := newTestController(t)
	token, userID := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/auth/link-whatsapp", token, map[string]any{
		"phone": "+5511999990000",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+5511999990000", body["phone"])

	user, err := store.GetUser(userID)
	require.NoError(t, err)
	require.NotNil(t, user.PhoneNumber)
	assert.Equal(t, "+5511999990000", *user.PhoneNumber)
	assert.True(t, user.WhatsAppOptIn)

	code, _ = doRequest(t, controller, http.MethodPost, "/api/v2/auth/unlink-whatsapp", token, nil)
	require.Equal(t, http.StatusOK, code)

	user, err = store.GetUser(userID)
	require.NoError(t, err)
	assert.Nil(t, user.PhoneNumber)
	assert.False(t, user.WhatsAppOptIn)
}

func TestLinkWhatsAppPhoneTaken(t *testing.T) {
	controller, store := newTestController(t)
	token, _ := registerUser(t, controller)

	phone := "+5511888880000"
	other := seedUserRecord(t, store, "other@example.com")
	other.PhoneNumber = &phone
	require.NoError(t, store.UpdateUser(&other))

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/auth/link-whatsapp", token, map[string]any{
		"phone": phone,
	})
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Telefone já vinculado a outra conta", body["message"])
}

func TestSessionList(t *testing.T) {
	controller, _ := newTestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/auth/sessions", token, nil)
	require.Equal(t, http.StatusOK, code)
	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 1)

	id := sessions[0].(map[string]any)["id"].(string)
	code, _ = doRequest(t, controller, http.MethodDelete, "/api/v2/auth/sessions/"+id, token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = doRequest(t, controller, http.MethodGet, "/api/v2/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
