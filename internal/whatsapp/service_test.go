package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/antonholmquist/jason"
	"github.com/jarcoal/httpmock"
	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const messagesURL = "https://graph.facebook.com/v18.0/314159/messages"

func newTestService(t *testing.T) (*Service, *datastore.SQLiteStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, model := range []any{
		&datastore.User{}, &datastore.Session{}, &datastore.Category{},
		&datastore.Note{}, &datastore.Insight{}, &datastore.UsageLog{}, &datastore.MediaFile{},
	} {
		require.NoError(t, db.AutoMigrate(model))
	}
	store := &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}

	settings := &conf.Settings{}
	settings.WhatsApp = conf.WhatsAppSettings{
		Enabled:            true,
		AccessToken:        "test-token",
		PhoneNumberID:      "314159",
		WebhookVerifyToken: "verify-me",
		AppSecret:          "app-secret",
	}

	service := New(settings, store)
	httpmock.ActivateNonDefault(service.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return service, store
}

func seedOptedInUser(t *testing.T, store *datastore.SQLiteStore, phone string) datastore.User {
	t.Helper()

	user := datastore.User{
		Email:         fmt.Sprintf("%s@example.com", phone),
		PasswordHash:  "hash",
		PhoneNumber:   &phone,
		WhatsAppOptIn: true,
	}
	require.NoError(t, store.CreateUser(&user))
	return user
}

func textWebhookPayload(from, body string) []byte {
	return []byte(fmt.Sprintf(`{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "%s",
						"id": "wamid.test1",
						"timestamp": "1725100000",
						"type": "text",
						"text": {"body": "%s"}
					}]
				}
			}]
		}]
	}`, from, body))
}

func TestVerifyWebhook(t *testing.T) {
	service, _ := newTestService(t)

	challenge, ok := service.VerifyWebhook("subscribe", "verify-me", "12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", challenge)

	_, ok = service.VerifyWebhook("subscribe", "wrong", "12345")
	assert.False(t, ok)

	_, ok = service.VerifyWebhook("unsubscribe", "verify-me", "12345")
	assert.False(t, ok)
}

func TestVerifySignature(t *testing.T) {
	service, _ := newTestService(t)
	payload := []byte(`{"entry": []}`)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(payload)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, service.VerifySignature(payload, valid))
	assert.False(t, service.VerifySignature(payload, "sha256=deadbeef"))
	assert.False(t, service.VerifySignature([]byte("tampered"), valid))
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	service, _ := newTestService(t)
	service.config.AppSecret = ""

	assert.True(t, service.VerifySignature([]byte("anything"), "sha256=whatever"))
}

func TestProcessWebhookCreatesNote(t *testing.T) {
	service, store := newTestService(t)
	user := seedOptedInUser(t, store, "5511988887777")

	httpmock.RegisterResponder("POST", messagesURL,
		httpmock.NewStringResponder(http.StatusOK, `{"messages": [{"id": "wamid.sent"}]}`))

	result, err := service.ProcessWebhook(context.Background(),
		textWebhookPayload("5511988887777", "lembrar de pagar o aluguel"))
	require.NoError(t, err)

	require.Equal(t, 1, result.ProcessedMessages)
	assert.Equal(t, ActionNoteCreated, result.Results[0].Action)

	notes, total, err := store.SearchNotes(datastore.NoteFilter{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "lembrar de pagar o aluguel", notes[0].Content)
	assert.Equal(t, datastore.SourceWhatsApp, notes[0].Source)
	assert.Equal(t, datastore.StatusPending, notes[0].Status)
	assert.Equal(t, "wamid.test1", notes[0].GetMetadata()["whatsapp_message_id"])

	// confirmation reply was sent
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcessWebhookUnknownNumberGetsWelcome(t *testing.T) {
	service, store := newTestService(t)

	var sentBody string
	httpmock.RegisterResponder("POST", messagesURL,
		func(req *http.Request) (*http.Response, error) {
			buf, _ := io.ReadAll(req.Body)
			sentBody = string(buf)
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	result, err := service.ProcessWebhook(context.Background(),
		textWebhookPayload("5511900000000", "oi"))
	require.NoError(t, err)

	require.Equal(t, 1, result.ProcessedMessages)
	assert.Equal(t, ActionWelcomeSent, result.Results[0].Action)
	assert.Contains(t, sentBody, "se cadastrar")

	// no note was created
	var count int64
	require.NoError(t, store.DB.Model(&datastore.Note{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessWebhookEmptyPayloads(t *testing.T) {
	service, _ := newTestService(t)

	t.Run("no entries", func(t *testing.T) {
		result, err := service.ProcessWebhook(context.Background(), []byte(`{"entry": []}`))
		require.NoError(t, err)
		assert.Zero(t, result.ProcessedMessages)
	})

	t.Run("status update without messages", func(t *testing.T) {
		payload := []byte(`{"entry": [{"changes": [{"value": {"statuses": [{"id": "wamid.x"}]}}]}]}`)
		result, err := service.ProcessWebhook(context.Background(), payload)
		require.NoError(t, err)
		assert.Zero(t, result.ProcessedMessages)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := service.ProcessWebhook(context.Background(), []byte(`not json`))
		require.Error(t, err)
	})
}

func TestProcessWebhookUnsupportedType(t *testing.T) {
	service, store := newTestService(t)
	seedOptedInUser(t, store, "5511955554444")

	payload := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [{
			"from": "5511955554444",
			"id": "wamid.sticker",
			"type": "sticker"
		}]}}]}]
	}`)

	result, err := service.ProcessWebhook(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 1, result.ProcessedMessages)
	assert.Equal(t, ActionSkipped, result.Results[0].Action)
	assert.Contains(t, result.Results[0].Error, "sticker")
}

func TestExtractContent(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		expected string
	}{
		{
			name:     "image with caption",
			payload:  `{"type": "image", "image": {"id": "m1", "caption": "recibo do mercado"}}`,
			expected: "[IMAGEM] recibo do mercado",
		},
		{
			name:     "image without caption",
			payload:  `{"type": "image", "image": {"id": "m1"}}`,
			expected: "[IMAGEM]",
		},
		{
			name:     "document",
			payload:  `{"type": "document", "document": {"filename": "contrato.pdf"}}`,
			expected: "[DOCUMENTO: contrato.pdf]",
		},
		{
			name:     "audio",
			payload:  `{"type": "audio", "audio": {"id": "m2"}}`,
			expected: "[ÁUDIO] - Transcrição pendente",
		},
		{
			name:     "video with caption",
			payload:  `{"type": "video", "video": {"caption": "apresentação"}}`,
			expected: "[VÍDEO] apresentação",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := jason.NewObjectFromBytes([]byte(tc.payload))
			require.NoError(t, err)
			msgType, _ := msg.GetString("type")

			content, ok := extractContent(msg, msgType)
			require.True(t, ok)
			assert.Equal(t, tc.expected, content)
		})
	}
}

func TestSendDailySummary(t *testing.T) {
	service, store := newTestService(t)
	user := seedOptedInUser(t, store, "5511933332222")

	var sentBody string
	httpmock.RegisterResponder("POST", messagesURL,
		func(req *http.Request) (*http.Response, error) {
			buf, _ := io.ReadAll(req.Body)
			sentBody = string(buf)
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	summary := &chatgpt.DailySummary{
		MainThemes: []string{"trabalho", "saúde"},
		TasksIdentified: []chatgpt.TaskItem{
			{Task: "tarefa 1", Priority: "alta"},
			{Task: "tarefa 2", Priority: "média"},
			{Task: "tarefa 3", Priority: "baixa"},
			{Task: "tarefa 4", Priority: "média"},
		},
		KeyInsights:    []string{"insight um", "insight dois", "insight três"},
		OverallSummary: "Dia cheio.",
	}

	assert.True(t, service.SendDailySummary(context.Background(), user.ID, summary))
	assert.Contains(t, sentBody, "Resumo do seu dia")
	assert.Contains(t, sentBody, "trabalho, saúde")
	assert.Contains(t, sentBody, "e mais 1 tarefas")
	// only the first two insights are included
	assert.Contains(t, sentBody, "insight dois")
	assert.NotContains(t, sentBody, "insight três")
}

func TestSendInsightsRequiresOptIn(t *testing.T) {
	service, store := newTestService(t)

	phone := "5511911110000"
	user := datastore.User{
		Email:         "optout@example.com",
		PasswordHash:  "hash",
		PhoneNumber:   &phone,
		WhatsAppOptIn: false,
	}
	require.NoError(t, store.CreateUser(&user))

	sent := service.SendInsights(context.Background(), user.ID, &chatgpt.NoteAnalysis{Summary: "resumo"})
	assert.False(t, sent)
	assert.Zero(t, httpmock.GetTotalCallCount())
}
