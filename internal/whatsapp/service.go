// Package whatsapp integrates with the WhatsApp Business API: it receives
// webhook messages and turns them into notes, and pushes confirmations,
// insights and daily summaries back to users.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/rmoura/notara-go/internal/logging"
)

// Package-level logger specific to the whatsapp service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "whatsapp.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "whatsapp", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize whatsapp file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "whatsapp")
		closeLogger = func() error { return nil }
	}
}

// Service handles WhatsApp Business API interactions
type Service struct {
	config     conf.WhatsAppSettings
	store      datastore.Interface
	httpClient *http.Client
}

// New creates a WhatsApp service bound to the given datastore.
func New(settings *conf.Settings, store datastore.Interface) *Service {
	config := settings.WhatsApp
	if config.BaseURL == "" {
		config.BaseURL = "https://graph.facebook.com/v18.0"
	}

	return &Service{
		config: config,
		store:  store,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Close cleans up service resources
func (s *Service) Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing whatsapp logger: %v", err)
		}
	}
}

// SendText sends a plain text message to a phone number.
func (s *Service) SendText(ctx context.Context, phoneNumber, text string) error {
	if s.config.AccessToken == "" || s.config.PhoneNumberID == "" {
		return errors.Newf("WhatsApp credentials are not configured").
			Component("whatsapp").
			Category(errors.CategoryConfiguration).
			Build()
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.config.BaseURL, s.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.New(err).
			Component("whatsapp").
			Category(errors.CategoryNetwork).
			Context("operation", "send_text").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Newf("WhatsApp API error: %d - %s", resp.StatusCode, truncate(string(respBody), 200)).
			Component("whatsapp").
			Category(errors.CategoryMessaging).
			Context("status_code", resp.StatusCode).
			Build()
	}

	logger.Debug("WhatsApp message sent", "to", phoneNumber, "length", len(text))
	return nil
}

// GetMediaURL resolves a media ID to its download URL.
func (s *Service) GetMediaURL(ctx context.Context, mediaID string) (string, error) {
	if s.config.AccessToken == "" {
		return "", errors.Newf("WhatsApp access token is not configured").
			Component("whatsapp").
			Category(errors.CategoryConfiguration).
			Build()
	}

	url := fmt.Sprintf("%s/%s", s.config.BaseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("WhatsApp media lookup failed: %d", resp.StatusCode).
			Component("whatsapp").
			Category(errors.CategoryMessaging).
			Context("media_id", mediaID).
			Build()
	}

	var data struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode media response: %w", err)
	}
	return data.URL, nil
}

// TestConnection verifies the configured credentials against the API.
func (s *Service) TestConnection(ctx context.Context) bool {
	if s.config.AccessToken == "" || s.config.PhoneNumberID == "" {
		return false
	}

	url := fmt.Sprintf("%s/%s", s.config.BaseURL, s.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
