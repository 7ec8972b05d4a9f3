package chatgpt

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionsURL = "https://api.openai.com/v1/chat/completions"

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(Config{APIKey: "test-key", RateLimitMS: 1})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

// completionResponse wraps a model JSON payload in the OpenAI envelope
func completionResponse(t *testing.T, content map[string]any, totalTokens int) string {
	t.Helper()

	inner, err := json.Marshal(content)
	require.NoError(t, err)

	envelope := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": string(inner)}},
		},
		"usage": map[string]any{"total_tokens": totalTokens},
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)
	return string(body)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfiguration))
}

func TestAnalyzeNote(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionResponse(t, map[string]any{
			"category_suggestion": "Trabalho",
			"tags":                []string{"reunião", "projeto"},
			"summary":             "Notas da reunião de planejamento.",
			"key_points":          []string{"definir escopo"},
			"action_items": []map[string]any{
				{"action": "enviar ata", "priority": "alta"},
				{"action": "agendar follow-up"},
			},
			"related_topics":   []string{"planejamento"},
			"sentiment":        "neutro",
			"confidence_score": 0.91,
		}, 150)))

	analysis, usage, err := client.AnalyzeNote(context.Background(), "reunião de planejamento do projeto", nil)
	require.NoError(t, err)

	assert.Equal(t, "Trabalho", analysis.CategorySuggestion)
	assert.Equal(t, []string{"reunião", "projeto"}, analysis.Tags)
	assert.InDelta(t, 0.91, analysis.ConfidenceScore, 0.001)
	require.Len(t, analysis.ActionItems, 2)
	assert.Equal(t, "alta", analysis.ActionItems[0].Priority)
	// missing priority falls back to the middle value
	assert.Equal(t, "média", analysis.ActionItems[1].Priority)

	assert.Equal(t, 150, usage.TokensUsed)
	assert.InDelta(t, 0.00003, usage.Cost, 1e-9)
}

func TestAnalyzeNotePrompt(t *testing.T) {
	client := newTestClient(t)

	var captured chatRequest
	httpmock.RegisterResponder("POST", completionsURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
			return httpmock.NewStringResponse(http.StatusOK,
				completionResponse(t, map[string]any{"summary": "ok"}, 10)), nil
		})

	prefs := map[string]any{
		"focus_areas":        []any{"finanças", "carreira"},
		"organization_style": "concise",
	}
	_, _, err := client.AnalyzeNote(context.Background(), "qualquer conteúdo", prefs)
	require.NoError(t, err)

	require.Len(t, captured.Messages, 2)
	system := captured.Messages[0].Content
	assert.Contains(t, system, "Foque especialmente em: finanças, carreira")
	assert.Contains(t, system, "concisas e diretas")
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.InDelta(t, 0.3, captured.Temperature, 0.001)
}

func TestCategorizeNotes(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionResponse(t, map[string]any{
			"categorizations": []map[string]any{
				{"note_index": 1, "suggested_category": "Saúde", "confidence": 0.8, "reason": "menciona consulta"},
				{"note_index": 2, "suggested_category": "Finanças", "confidence": 0.7, "reason": "menciona fatura"},
			},
			"new_categories": []map[string]any{
				{"name": "Viagens", "description": "planejamento de viagens", "suggested_icon": "✈️"},
			},
		}, 200)))

	notes := []NoteRef{
		{ID: "n1", Content: "marcar consulta médica"},
		{ID: "n2", Content: "pagar fatura do cartão"},
	}
	result, usage, err := client.CategorizeNotes(context.Background(), notes, []string{"Saúde"})
	require.NoError(t, err)

	require.Len(t, result.Categorizations, 2)
	assert.Equal(t, 1, result.Categorizations[0].NoteIndex)
	assert.Equal(t, "Saúde", result.Categorizations[0].SuggestedCategory)
	require.Len(t, result.NewCategories, 1)
	assert.Equal(t, "Viagens", result.NewCategories[0].Name)
	assert.Equal(t, 200, usage.TokensUsed)
}

func TestCategorizeNotesEmptyBatch(t *testing.T) {
	client := newTestClient(t)

	result, usage, err := client.CategorizeNotes(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Categorizations)
	assert.Zero(t, usage.TokensUsed)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestGenerateDailySummary(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionResponse(t, map[string]any{
			"summary": map[string]any{
				"main_themes": []string{"trabalho", "saúde"},
				"tasks_identified": []map[string]any{
					{"task": "enviar relatório", "priority": "alta", "suggested_deadline": "2026-09-01"},
				},
				"key_insights":       []string{"dia produtivo"},
				"action_suggestions": []string{"revisar pendências"},
				"overall_summary":    "Dia focado em entregas.",
			},
		}, 300)))

	notes := []NoteContext{
		{Content: "terminar o relatório mensal", Category: "Trabalho"},
		{Content: "corrida no parque", Category: ""},
	}
	summary, usage, err := client.GenerateDailySummary(context.Background(), notes, "2026-08-31")
	require.NoError(t, err)

	assert.Equal(t, "Dia focado em entregas.", summary.OverallSummary)
	require.Len(t, summary.TasksIdentified, 1)
	assert.Equal(t, "2026-09-01", summary.TasksIdentified[0].Deadline)
	assert.Equal(t, 300, usage.TokensUsed)
}

func TestExtractTasks(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completionResponse(t, map[string]any{
			"tasks": []map[string]any{
				{"task": "comprar passagem", "deadline": "2026-09-10", "priority": "alta", "confidence": 0.9},
				{"task": "reservar hotel"},
			},
			"dates_mentioned": []map[string]any{
				{"date": "2026-09-10", "context": "viagem marcada"},
			},
		}, 80)))

	extraction, usage, err := client.ExtractTasks(context.Background(), "viagem dia 10 de setembro")
	require.NoError(t, err)

	require.Len(t, extraction.Tasks, 2)
	assert.InDelta(t, 0.9, extraction.Tasks[0].Confidence, 0.001)
	// missing confidence gets the default
	assert.InDelta(t, 0.7, extraction.Tasks[1].Confidence, 0.001)
	require.Len(t, extraction.DatesMentioned, 1)
	assert.Equal(t, 80, usage.TokensUsed)
}

func TestCompleteErrors(t *testing.T) {
	t.Run("api error status", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder("POST", completionsURL,
			httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error": {"message": "rate limit"}}`))

		_, _, err := client.AnalyzeNote(context.Background(), "conteúdo", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryProvider))
	})

	t.Run("malformed model json", func(t *testing.T) {
		client := newTestClient(t)
		envelope := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "not json at all"}},
			},
			"usage": map[string]any{"total_tokens": 42},
		}
		body, err := json.Marshal(envelope)
		require.NoError(t, err)
		httpmock.RegisterResponder("POST", completionsURL,
			httpmock.NewStringResponder(http.StatusOK, string(body)))

		_, usage, err := client.AnalyzeNote(context.Background(), "conteúdo", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryProvider))
		// tokens were still consumed and must be accounted for
		assert.Equal(t, 42, usage.TokensUsed)
	})

	t.Run("no choices", func(t *testing.T) {
		client := newTestClient(t)
		httpmock.RegisterResponder("POST", completionsURL,
			httpmock.NewStringResponder(http.StatusOK, `{"choices": [], "usage": {"total_tokens": 5}}`))

		_, _, err := client.ExtractTasks(context.Background(), "conteúdo")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryProvider))
	})
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.0002, calculateCost(1000), 1e-9)
	assert.Zero(t, calculateCost(0))
}
