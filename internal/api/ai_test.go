package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmoura/notara-go/internal/ai"
	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/perplexity"
)

// stubAnalysis satisfies both the pipeline's analysis client and the
// controller's AnalysisProvider.
type stubAnalysis struct {
	analysis   *chatgpt.NoteAnalysis
	extraction *chatgpt.TaskExtraction
	reachable  bool
}

func (s *stubAnalysis) AnalyzeNote(ctx context.Context, content string, prefs map[string]any) (*chatgpt.NoteAnalysis, chatgpt.Usage, error) {
	return s.analysis, chatgpt.Usage{TokensUsed: 100, Cost: 0.00002}, nil
}

func (s *stubAnalysis) CategorizeNotes(ctx context.Context, notes []chatgpt.NoteRef, existing []string) (*chatgpt.CategorizationResult, chatgpt.Usage, error) {
	return &chatgpt.CategorizationResult{}, chatgpt.Usage{}, nil
}

func (s *stubAnalysis) GenerateDailySummary(ctx context.Context, notes []chatgpt.NoteContext, date string) (*chatgpt.DailySummary, chatgpt.Usage, error) {
	return &chatgpt.DailySummary{OverallSummary: "dia produtivo"}, chatgpt.Usage{TokensUsed: 50, Cost: 0.00001}, nil
}

func (s *stubAnalysis) ExtractTasks(ctx context.Context, content string) (*chatgpt.TaskExtraction, chatgpt.Usage, error) {
	return s.extraction, chatgpt.Usage{TokensUsed: 40, Cost: 0.000008}, nil
}

func (s *stubAnalysis) TestConnection(ctx context.Context) bool { return s.reachable }

// stubSearch satisfies both the pipeline's search client and the
// controller's SearchProvider.
type stubSearch struct {
	result    *perplexity.SearchResult
	reachable bool
	calls     int
}

func (s *stubSearch) search() (*perplexity.SearchResult, perplexity.Usage, error) {
	s.calls++
	return s.result, perplexity.Usage{TokensUsed: 200, Cost: 0.0002}, nil
}

func (s *stubSearch) SearchRelatedInformation(ctx context.Context, noteContent, searchFocus string) (*perplexity.SearchResult, perplexity.Usage, error) {
	return s.search()
}

func (s *stubSearch) FindRelatedEvents(ctx context.Context, noteContent, location string) (*perplexity.SearchResult, perplexity.Usage, error) {
	return s.search()
}

func (s *stubSearch) SuggestTools(ctx context.Context, noteContent, platform string) (*perplexity.SearchResult, perplexity.Usage, error) {
	return s.search()
}

func (s *stubSearch) GetMarketInsights(ctx context.Context, topic, industry string) (*perplexity.SearchResult, perplexity.Usage, error) {
	return s.search()
}

func (s *stubSearch) FactCheck(ctx context.Context, claim string) (*perplexity.SearchResult, perplexity.Usage, error) {
	return s.search()
}

func (s *stubSearch) TestConnection(ctx context.Context) bool { return s.reachable }

func newAITestController(t *testing.T) (*Controller, *datastore.SQLiteStore, *stubSearch) {
	t.Helper()

	store := newTestStore(t)
	settings := &conf.Settings{}
	settings.Quota.FreeDailyLimit = 5

	analysis := &stubAnalysis{
		analysis: &chatgpt.NoteAnalysis{
			CategorySuggestion: "Trabalho",
			Summary:            "resumo da nota",
			ConfidenceScore:    0.9,
		},
		extraction: &chatgpt.TaskExtraction{
			Tasks: []chatgpt.TaskItem{{Task: "enviar relatório", Priority: "alta"}},
		},
		reachable: true,
	}
	search := &stubSearch{
		result:    &perplexity.SearchResult{Content: "contexto", Citations: []string{"https://example.com"}},
		reachable: true,
	}

	processor := ai.New(settings, store, analysis, search, nil)
	controller, err := New(echo.New(), store, settings, processor,
		log.New(io.Discard, "", 0),
		WithAnalysisProvider(analysis), WithSearchProvider(search))
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	return controller, store, search
}

func exhaustQuota(t *testing.T, store *datastore.SQLiteStore, userID string) {
	t.Helper()

	for i := 0; i < 5; i++ {
		entry := datastore.UsageLog{UserID: userID, APIType: "chatgpt", Endpoint: "analyze_note"}
		require.NoError(t, store.LogUsage(&entry))
	}
}

func TestSearchExternal(t *testing.T) {
	controller, store, search := newAITestController(t)
	token, userID := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/search-external", token, map[string]any{
		"query": "tendências de mercado",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "contexto", body["content"])
	assert.Equal(t, 1, search.calls)

	start := time.Now().Truncate(24 * time.Hour)
	count, err := store.DailyUsage(userID, "perplexity", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSearchExternalRequiresQuery(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/search-external", token, map[string]any{
		"query": "  ",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Consulta é obrigatória", body["message"])
}

func TestSearchUnconfigured(t *testing.T) {
	controller, _ := newTestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/search-external", token, map[string]any{
		"query": "qualquer coisa",
	})
	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Serviço de busca não configurado", body["message"])
}

func TestAIQuotaExhausted(t *testing.T) {
	controller, store, _ := newAITestController(t)
	token, userID := registerUser(t, controller)
	exhaustQuota(t, store, userID)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/search-external", token, map[string]any{
		"query": "bloqueada",
	})
	require.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Limite de uso de IA atingido", body["message"])
}

func TestProcessNoteEndpoint(t *testing.T) {
	controller, store, _ := newAITestController(t)
	token, userID := registerUser(t, controller)

	note := datastore.Note{UserID: userID, Content: "Preparar apresentação para o cliente"}
	require.NoError(t, store.CreateNote(&note))

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/process-note/"+note.ID, token, nil)
	require.Equal(t, http.StatusOK, code)

	payload := body["note"].(map[string]any)
	assert.Equal(t, "processed", payload["status"])
	assert.Equal(t, "Trabalho", payload["category"])
}

func TestProcessNoteNotFound(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/process-note/inexistente", token, nil)
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Anotação não encontrada", body["message"])
}

func TestProcessDailyNoNotes(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/process-daily", token, map[string]any{})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Nenhuma anotação encontrada para o dia", body["message"])
}

func TestProcessDaily(t *testing.T) {
	controller, store, _ := newAITestController(t)
	token, userID := registerUser(t, controller)

	note := datastore.Note{UserID: userID, Content: "Dia cheio de reuniões"}
	require.NoError(t, store.CreateNote(&note))

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/process-daily", token, map[string]any{})
	require.Equal(t, http.StatusOK, code)

	summary := body["summary"].(map[string]any)
	assert.Equal(t, "dia produtivo", summary["overall_summary"])
	assert.EqualValues(t, 1, body["note_count"])
}

func TestFindRelatedEndpoint(t *testing.T) {
	controller, store, _ := newAITestController(t)
	token, userID := registerUser(t, controller)

	first := datastore.Note{UserID: userID, Content: "planejamento financeiro anual"}
	require.NoError(t, store.CreateNote(&first))
	second := datastore.Note{UserID: userID, Content: "revisar planejamento financeiro"}
	require.NoError(t, store.CreateNote(&second))

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/find-related/"+first.ID, token, nil)
	require.Equal(t, http.StatusOK, code)

	related := body["related_notes"].([]any)
	require.NotEmpty(t, related)
	assert.Equal(t, second.ID, related[0].(map[string]any)["note_id"])
}

func TestAnalyzeText(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/analyze-text", token, map[string]any{
		"text": "Planejar viagem de férias",
	})
	require.Equal(t, http.StatusOK, code)

	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, "resumo da nota", analysis["summary"])
}

func TestExtractTasksEndpoint(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodPost, "/api/v2/ai/extract-tasks", token, map[string]any{
		"text": "Enviar relatório até sexta",
	})
	require.Equal(t, http.StatusOK, code)

	extraction := body["extraction"].(map[string]any)
	tasks := extraction["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "enviar relatório", tasks[0].(map[string]any)["task"])
}

func TestAIStatsEndpoint(t *testing.T) {
	controller, store, _ := newAITestController(t)
	token, userID := registerUser(t, controller)

	note := datastore.Note{UserID: userID, Content: "pendente"}
	require.NoError(t, store.CreateNote(&note))

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/ai/stats", token, nil)
	require.Equal(t, http.StatusOK, code)

	statuses := body["notes_by_status"].(map[string]any)
	assert.EqualValues(t, 1, statuses["pending"])
}

func TestConnectionsEndpoint(t *testing.T) {
	controller, _, _ := newAITestController(t)
	token, _ := registerUser(t, controller)

	code, body := doRequest(t, controller, http.MethodGet, "/api/v2/ai/test-connections", token, nil)
	require.Equal(t, http.StatusOK, code)

	connections := body["connections"].(map[string]any)
	chatgptStatus := connections["chatgpt"].(map[string]any)
	assert.Equal(t, true, chatgptStatus["configured"])
	assert.Equal(t, true, chatgptStatus["reachable"])
}
