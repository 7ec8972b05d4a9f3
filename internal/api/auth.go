package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
)

const sessionLifetime = 30 * 24 * time.Hour

// contextUserKey is the echo context key holding the authenticated user.
const contextUserKey = "current_user"

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneDigits  = regexp.MustCompile(`[^\d+]`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{10,14}$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	digitPattern = regexp.MustCompile(`\d`)
)

func (c *Controller) initAuthRoutes() {
	auth := c.Group.Group("/auth")
	auth.POST("/register", c.Register)
	auth.POST("/login", c.Login)

	protected := auth.Group("", c.AuthMiddleware)
	protected.POST("/logout", c.Logout)
	protected.GET("/me", c.CurrentUser)
	protected.POST("/link-whatsapp", c.LinkWhatsApp)
	protected.POST("/unlink-whatsapp", c.UnlinkWhatsApp)
	protected.GET("/sessions", c.ListSessions)
	protected.DELETE("/sessions/:id", c.RevokeSession)
}

func validatePassword(password string) (bool, string) {
	switch {
	case len(password) < 8:
		return false, "Senha deve ter pelo menos 8 caracteres"
	case !upperPattern.MatchString(password):
		return false, "Senha deve conter pelo menos uma letra maiúscula"
	case !lowerPattern.MatchString(password):
		return false, "Senha deve conter pelo menos uma letra minúscula"
	case !digitPattern.MatchString(password):
		return false, "Senha deve conter pelo menos um número"
	}
	return true, ""
}

func validPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phoneDigits.ReplaceAllString(phone, ""))
}

// newSessionToken generates an opaque session token and its stored hash.
func newSessionToken() (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *Controller) createSession(ctx echo.Context, userID string) (token string, err error) {
	token, hash, err := newSessionToken()
	if err != nil {
		return "", err
	}

	deviceInfo, _ := json.Marshal(map[string]any{
		"user_agent": ctx.Request().UserAgent(),
		"ip_address": ctx.RealIP(),
	})

	session := datastore.Session{
		UserID:       userID,
		TokenHash:    hash,
		ExpiresAt:    time.Now().Add(sessionLifetime),
		LastAccessed: time.Now(),
		DeviceInfo:   string(deviceInfo),
	}
	if err := c.DS.CreateSession(&session); err != nil {
		return "", err
	}
	return token, nil
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// Register creates a new account with its default categories and an
// initial session.
func (c *Controller) Register(ctx echo.Context) error {
	var req registerRequest
	if err := ctx.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.HandleError(ctx, nil, "Email e senha são obrigatórios", http.StatusBadRequest)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return c.HandleError(ctx, nil, "Formato de email inválido", http.StatusBadRequest)
	}
	if ok, message := validatePassword(req.Password); !ok {
		return c.HandleError(ctx, nil, message, http.StatusBadRequest)
	}
	phone := strings.TrimSpace(req.Phone)
	if !validPhone(phone) {
		return c.HandleError(ctx, nil, "Formato de telefone inválido", http.StatusBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	user := datastore.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
	}
	if phone != "" {
		if _, err := c.DS.GetUserByPhone(phone); err == nil {
			return c.HandleError(ctx, nil, "Telefone já cadastrado", http.StatusConflict)
		}
		user.PhoneNumber = &phone
	}

	if err := c.DS.CreateUser(&user); err != nil {
		if errors.HasCategory(err, errors.CategoryConflict) {
			return c.HandleError(ctx, nil, "Email já cadastrado", http.StatusConflict)
		}
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	if _, err := c.DS.CreateDefaultCategories(user.ID); err != nil {
		c.logger.Printf("Warning: failed to create default categories for %s: %v", user.ID, err)
	}

	token, err := c.createSession(ctx, user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message":      "Usuário criado com sucesso",
		"user":         userResponse(&user),
		"access_token": token,
		"expires_in":   int(sessionLifetime.Seconds()),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing account and opens a new session.
func (c *Controller) Login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.HandleError(ctx, nil, "Email e senha são obrigatórios", http.StatusBadRequest)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := c.DS.GetUserByEmail(email)
	if err != nil {
		return c.HandleError(ctx, nil, "Credenciais inválidas", http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.HandleError(ctx, nil, "Credenciais inválidas", http.StatusUnauthorized)
	}
	if !user.IsActive {
		return c.HandleError(ctx, nil, "Conta desativada", http.StatusUnauthorized)
	}

	token, err := c.createSession(ctx, user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message":      "Login realizado com sucesso",
		"user":         userResponse(&user),
		"access_token": token,
		"expires_in":   int(sessionLifetime.Seconds()),
	})
}

// AuthMiddleware authenticates requests by bearer token hash lookup.
func (c *Controller) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return c.HandleError(ctx, nil, "Token de acesso requerido", http.StatusUnauthorized)
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.HandleError(ctx, nil, "Token inválido", http.StatusUnauthorized)
		}

		session, err := c.DS.GetSessionByTokenHash(hashToken(token))
		if err != nil {
			return c.HandleError(ctx, nil, "Token inválido", http.StatusUnauthorized)
		}
		if session.IsExpired() {
			return c.HandleError(ctx, nil, "Token expirado", http.StatusUnauthorized)
		}

		user, err := c.DS.GetUser(session.UserID)
		if err != nil || !user.IsActive {
			return c.HandleError(ctx, nil, "Usuário inválido", http.StatusUnauthorized)
		}

		ctx.Set(contextUserKey, &user)
		return next(ctx)
	}
}

// currentUser returns the authenticated user placed by AuthMiddleware.
func currentUser(ctx echo.Context) *datastore.User {
	user, _ := ctx.Get(contextUserKey).(*datastore.User)
	return user
}

// Logout invalidates the current session.
func (c *Controller) Logout(ctx echo.Context) error {
	user := currentUser(ctx)

	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	token, _ := strings.CutPrefix(header, "Bearer ")
	if session, err := c.DS.GetSessionByTokenHash(hashToken(token)); err == nil && session.UserID == user.ID {
		if err := c.DS.DeactivateSession(session.ID); err != nil {
			return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{"message": "Logout realizado com sucesso"})
}

// CurrentUser returns the authenticated user's profile.
func (c *Controller) CurrentUser(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"user": userResponse(currentUser(ctx))})
}

type linkWhatsAppRequest struct {
	Phone string `json:"phone"`
}

// LinkWhatsApp attaches a phone number to the account and opts it in to
// WhatsApp delivery.
func (c *Controller) LinkWhatsApp(ctx echo.Context) error {
	user := currentUser(ctx)

	var req linkWhatsAppRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		return c.HandleError(ctx, nil, "Número de telefone é obrigatório", http.StatusBadRequest)
	}
	phone := strings.TrimSpace(req.Phone)
	if !validPhone(phone) {
		return c.HandleError(ctx, nil, "Formato de telefone inválido", http.StatusBadRequest)
	}

	if existing, err := c.DS.GetUserByPhone(phone); err == nil && existing.ID != user.ID {
		return c.HandleError(ctx, nil, "Telefone já vinculado a outra conta", http.StatusConflict)
	}

	user.PhoneNumber = &phone
	user.WhatsAppOptIn = true
	if err := c.DS.UpdateUser(user); err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "WhatsApp vinculado com sucesso",
		"phone":   phone,
	})
}

// UnlinkWhatsApp removes the phone number and opt-in flag.
func (c *Controller) UnlinkWhatsApp(ctx echo.Context) error {
	user := currentUser(ctx)

	user.PhoneNumber = nil
	user.WhatsAppOptIn = false
	if err := c.DS.UpdateUser(user); err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"message": "WhatsApp desvinculado com sucesso"})
}

// ListSessions returns the user's active sessions.
func (c *Controller) ListSessions(ctx echo.Context) error {
	user := currentUser(ctx)

	sessions, err := c.DS.GetActiveSessions(user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}

	out := make([]map[string]any, 0, len(sessions))
	for i := range sessions {
		var deviceInfo map[string]any
		_ = json.Unmarshal([]byte(sessions[i].DeviceInfo), &deviceInfo)
		out = append(out, map[string]any{
			"id":            sessions[i].ID,
			"user_id":       sessions[i].UserID,
			"expires_at":    sessions[i].ExpiresAt,
			"created_at":    sessions[i].CreatedAt,
			"last_accessed": sessions[i].LastAccessed,
			"device_info":   deviceInfo,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"sessions": out})
}

// RevokeSession deactivates one of the user's sessions.
func (c *Controller) RevokeSession(ctx echo.Context) error {
	user := currentUser(ctx)

	sessions, err := c.DS.GetActiveSessions(user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
	}
	for i := range sessions {
		if sessions[i].ID == ctx.Param("id") {
			if err := c.DS.DeactivateSession(sessions[i].ID); err != nil {
				return c.HandleError(ctx, err, "Erro interno do servidor", http.StatusInternalServerError)
			}
			return ctx.JSON(http.StatusOK, map[string]any{"message": "Sessão revogada com sucesso"})
		}
	}
	return c.HandleError(ctx, nil, "Sessão não encontrada", http.StatusNotFound)
}
