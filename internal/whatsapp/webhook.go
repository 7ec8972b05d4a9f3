package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/antonholmquist/jason"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
)

// Webhook actions reported per processed message.
const (
	ActionWelcomeSent = "welcome_sent"
	ActionNoteCreated = "note_created"
	ActionSkipped     = "skipped"
)

// MessageResult describes the outcome of one inbound message.
type MessageResult struct {
	Action string `json:"action"`
	NoteID string `json:"note_id,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WebhookResult summarizes one webhook delivery.
type WebhookResult struct {
	ProcessedMessages int             `json:"processed_messages"`
	Results           []MessageResult `json:"results"`
}

// VerifyWebhook answers the Meta webhook subscription handshake. It returns
// the challenge to echo back and whether the verification passed.
func (s *Service) VerifyWebhook(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token == s.config.WebhookVerifyToken && s.config.WebhookVerifyToken != "" {
		return challenge, true
	}
	return "", false
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// payload. Verification is skipped when no app secret is configured, which
// is only acceptable in development.
func (s *Service) VerifySignature(payload []byte, signature string) bool {
	if s.config.AppSecret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(s.config.AppSecret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles an inbound webhook payload. Messages from unknown
// numbers get an onboarding reply, messages from registered users become
// pending notes. Replies are best effort, a failed send never fails the
// webhook.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte) (*WebhookResult, error) {
	root, err := jason.NewObjectFromBytes(payload)
	if err != nil {
		return nil, errors.Newf("malformed webhook payload: %v", err).
			Component("whatsapp").
			Category(errors.CategoryValidation).
			Build()
	}

	result := &WebhookResult{}

	entries, err := root.GetObjectArray("entry")
	if err != nil || len(entries) == 0 {
		return result, nil
	}
	changes, err := entries[0].GetObjectArray("changes")
	if err != nil || len(changes) == 0 {
		return result, nil
	}
	value, err := changes[0].GetObject("value")
	if err != nil {
		return result, nil
	}
	messages, err := value.GetObjectArray("messages")
	if err != nil || len(messages) == 0 {
		return result, nil
	}

	for _, message := range messages {
		result.Results = append(result.Results, s.processMessage(ctx, message))
	}
	result.ProcessedMessages = len(result.Results)
	return result, nil
}

func (s *Service) processMessage(ctx context.Context, message *jason.Object) MessageResult {
	from, _ := message.GetString("from")
	messageID, _ := message.GetString("id")
	timestamp, _ := message.GetString("timestamp")
	messageType, _ := message.GetString("type")

	user, err := s.store.GetUserByPhone(from)
	if err != nil {
		if errors.HasCategory(err, errors.CategoryNotFound) {
			if sendErr := s.SendText(ctx, from, welcomeMessage); sendErr != nil {
				logger.Warn("Failed to send welcome message", "to", from, "error", sendErr)
			}
			return MessageResult{Action: ActionWelcomeSent, Phone: from}
		}
		return MessageResult{Action: ActionSkipped, Phone: from, Error: err.Error()}
	}

	content, ok := extractContent(message, messageType)
	if !ok {
		logger.Debug("Unsupported message type", "type", messageType, "from", from)
		return MessageResult{
			Action: ActionSkipped,
			Phone:  from,
			Error:  "unsupported message type: " + messageType,
		}
	}

	note := datastore.Note{
		UserID:  user.ID,
		Content: content,
		Source:  datastore.SourceWhatsApp,
	}
	note.SetMetadata(map[string]any{
		"whatsapp_message_id": messageID,
		"whatsapp_timestamp":  timestamp,
		"message_type":        messageType,
		"from_number":         from,
	})

	if err := s.store.CreateNote(&note); err != nil {
		logger.Error("Failed to create note from webhook",
			"from", from,
			"message_id", messageID,
			"error", err)
		return MessageResult{Action: ActionSkipped, Phone: from, Error: err.Error()}
	}

	if err := s.SendText(ctx, from, confirmationMessage(note.ID)); err != nil {
		logger.Warn("Failed to send confirmation", "to", from, "error", err)
	}

	logger.Info("Note created from WhatsApp message",
		"note_id", note.ID,
		"user_id", user.ID,
		"message_type", messageType)

	return MessageResult{Action: ActionNoteCreated, NoteID: note.ID, Phone: from}
}

// extractContent maps the typed message payload to note text. Media types
// become placeholder text with whatever caption came along.
func extractContent(message *jason.Object, messageType string) (string, bool) {
	switch messageType {
	case "text":
		body, err := message.GetString("text", "body")
		if err != nil {
			return "", false
		}
		return body, true

	case "image":
		if caption, err := message.GetString("image", "caption"); err == nil && caption != "" {
			return "[IMAGEM] " + caption, true
		}
		return "[IMAGEM]", true

	case "document":
		filename, err := message.GetString("document", "filename")
		if err != nil || filename == "" {
			filename = "documento"
		}
		if caption, err := message.GetString("document", "caption"); err == nil && caption != "" {
			return fmt.Sprintf("[DOCUMENTO: %s] %s", filename, caption), true
		}
		return fmt.Sprintf("[DOCUMENTO: %s]", filename), true

	case "audio":
		return "[ÁUDIO] - Transcrição pendente", true

	case "video":
		if caption, err := message.GetString("video", "caption"); err == nil && caption != "" {
			return "[VÍDEO] " + caption, true
		}
		return "[VÍDEO]", true

	case "location":
		latitude, _ := message.GetFloat64("location", "latitude")
		longitude, _ := message.GetFloat64("location", "longitude")
		name, _ := message.GetString("location", "name")
		address, _ := message.GetString("location", "address")
		return fmt.Sprintf("[LOCALIZAÇÃO] %s - %s (%v, %v)", name, address, latitude, longitude), true

	default:
		return "", false
	}
}
