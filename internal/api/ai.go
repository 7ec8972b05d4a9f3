package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/perplexity"
)

const maxCategorizeLimit = 50

// AnalysisProvider is the language-model surface the direct AI endpoints
// use. *chatgpt.Client satisfies it.
type AnalysisProvider interface {
	AnalyzeNote(ctx context.Context, content string, prefs map[string]any) (*chatgpt.NoteAnalysis, chatgpt.Usage, error)
	ExtractTasks(ctx context.Context, content string) (*chatgpt.TaskExtraction, chatgpt.Usage, error)
	TestConnection(ctx context.Context) bool
}

// SearchProvider is the web-search surface the direct AI endpoints use.
// *perplexity.Client satisfies it.
type SearchProvider interface {
	SearchRelatedInformation(ctx context.Context, noteContent, searchFocus string) (*perplexity.SearchResult, perplexity.Usage, error)
	FindRelatedEvents(ctx context.Context, noteContent, location string) (*perplexity.SearchResult, perplexity.Usage, error)
	SuggestTools(ctx context.Context, noteContent, platform string) (*perplexity.SearchResult, perplexity.Usage, error)
	GetMarketInsights(ctx context.Context, topic, industry string) (*perplexity.SearchResult, perplexity.Usage, error)
	FactCheck(ctx context.Context, claim string) (*perplexity.SearchResult, perplexity.Usage, error)
	TestConnection(ctx context.Context) bool
}

func (c *Controller) initAIRoutes() {
	ai := c.Group.Group("/ai", c.AuthMiddleware)
	ai.POST("/process-note/:id", c.ProcessNote)
	ai.POST("/process-daily", c.ProcessDaily)
	ai.POST("/categorize-notes", c.CategorizeNotes)
	ai.POST("/find-related/:id", c.FindRelatedNotes)
	ai.GET("/stats", c.AIStats)
	ai.POST("/search-external", c.SearchExternal)
	ai.POST("/find-events", c.FindEvents)
	ai.POST("/suggest-tools", c.SuggestTools)
	ai.POST("/market-insights", c.MarketInsights)
	ai.POST("/fact-check", c.FactCheck)
	ai.POST("/analyze-text", c.AnalyzeText)
	ai.POST("/extract-tasks", c.ExtractTasks)
	ai.GET("/test-connections", c.TestConnections)
}

// checkQuota rejects the request with 429 when the user has exhausted the
// daily free allowance.
func (c *Controller) checkQuota(ctx echo.Context, user *datastore.User) error {
	allowed, err := c.Processor.CanUseAI(user)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao verificar limite de uso", http.StatusInternalServerError)
	}
	if !allowed {
		return c.HandleError(ctx, nil, "Limite de uso de IA atingido", http.StatusTooManyRequests)
	}
	return nil
}

func (c *Controller) logDirectUsage(userID, apiType, endpoint string, tokens int, cost float64) {
	entry := datastore.UsageLog{
		UserID:     userID,
		APIType:    apiType,
		Endpoint:   endpoint,
		TokensUsed: tokens,
		Cost:       cost,
	}
	if err := c.DS.LogUsage(&entry); err != nil {
		c.logger.Printf("Warning: failed to log %s usage for %s: %v", apiType, userID, err)
	}
}

// ProcessNote runs the full enrichment pipeline on one note.
func (c *Controller) ProcessNote(ctx echo.Context) error {
	user := currentUser(ctx)

	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	result := c.Processor.ProcessNote(ctx.Request().Context(), note.ID, user.GetPreferences())
	if !result.Success {
		code := http.StatusInternalServerError
		switch result.Error {
		case "Anotação não encontrada", "Usuário não encontrado":
			code = http.StatusNotFound
		case "Limite de uso de IA atingido":
			code = http.StatusTooManyRequests
		}
		return c.HandleError(ctx, nil, result.Error, code)
	}

	processed, err := c.DS.GetNote(note.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar anotação", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Anotação processada com sucesso",
		"note":    noteResponse(&processed, true),
		"result":  result,
	})
}

type processDailyRequest struct {
	Date string `json:"date"`
}

// ProcessDaily generates the daily summary for a given date, today when
// omitted.
func (c *Controller) ProcessDaily(ctx echo.Context) error {
	user := currentUser(ctx)

	var req processDailyRequest
	_ = ctx.Bind(&req)

	if err := c.checkQuota(ctx, user); err != nil {
		return err
	}

	summary, noteCount, err := c.Processor.ProcessDailyNotes(ctx.Request().Context(), user.ID, req.Date)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao gerar resumo diário", http.StatusInternalServerError)
	}
	if summary == nil {
		return ctx.JSON(http.StatusOK, map[string]any{
			"message":    "Nenhuma anotação encontrada para o dia",
			"note_count": 0,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":    "Resumo diário gerado com sucesso",
		"summary":    summary,
		"note_count": noteCount,
	})
}

type categorizeNotesRequest struct {
	Limit int `json:"limit"`
}

// CategorizeNotes asks the model to categorize a batch of uncategorized
// notes.
func (c *Controller) CategorizeNotes(ctx echo.Context) error {
	user := currentUser(ctx)

	var req categorizeNotesRequest
	_ = ctx.Bind(&req)
	if req.Limit > maxCategorizeLimit {
		req.Limit = maxCategorizeLimit
	}

	if err := c.checkQuota(ctx, user); err != nil {
		return err
	}

	result, err := c.Processor.CategorizeUncategorized(ctx.Request().Context(), user.ID, req.Limit)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao categorizar anotações", http.StatusInternalServerError)
	}

	c.statsCache.Delete(statsCacheKey(user.ID))
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":            "Categorização concluída",
		"processed_notes":    result.ProcessedNotes,
		"categorized_notes":  result.CategorizedNotes,
		"created_categories": result.CreatedCategories,
	})
}

// FindRelatedNotes scores the user's other notes for keyword overlap.
func (c *Controller) FindRelatedNotes(ctx echo.Context) error {
	note, ok := c.ownedNote(ctx, ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Anotação não encontrada", http.StatusNotFound)
	}

	related, err := c.Processor.FindRelatedNotes(note.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao buscar anotações relacionadas", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"related_notes": related,
		"total":         len(related),
	})
}

// AIStats reports note status counts and usage ledger totals.
func (c *Controller) AIStats(ctx echo.Context) error {
	user := currentUser(ctx)

	stats, err := c.Processor.Stats(user.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao calcular estatísticas", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"notes_by_status": stats.NotesByStatus,
		"active_insights": stats.ActiveInsights,
		"today": map[string]any{
			"chatgpt_calls": stats.TodayChatGPT,
			"search_calls":  stats.TodaySearch,
		},
		"totals": map[string]any{
			"total_calls":  stats.Totals.TotalCalls,
			"total_tokens": stats.Totals.TotalTokens,
			"total_cost":   stats.Totals.TotalCost,
		},
	})
}

// runSearch handles the shared plumbing of the direct search endpoints:
// provider presence, quota, usage logging and the response envelope.
func (c *Controller) runSearch(ctx echo.Context, endpoint string, call func(context.Context) (*perplexity.SearchResult, perplexity.Usage, error)) error {
	user := currentUser(ctx)

	if c.Search == nil {
		return c.HandleError(ctx, nil, "Serviço de busca não configurado", http.StatusServiceUnavailable)
	}
	if err := c.checkQuota(ctx, user); err != nil {
		return err
	}

	result, usage, err := call(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao consultar serviço de busca", http.StatusBadGateway)
	}
	c.logDirectUsage(user.ID, "perplexity", endpoint, usage.TokensUsed, usage.Cost)

	return ctx.JSON(http.StatusOK, map[string]any{
		"content":   result.Content,
		"citations": result.Citations,
	})
}

type searchExternalRequest struct {
	Query string `json:"query"`
	Focus string `json:"focus"`
}

// SearchExternal runs a free-form web search.
func (c *Controller) SearchExternal(ctx echo.Context) error {
	var req searchExternalRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		return c.HandleError(ctx, nil, "Consulta é obrigatória", http.StatusBadRequest)
	}
	return c.runSearch(ctx, "search_external", func(ctx context.Context) (*perplexity.SearchResult, perplexity.Usage, error) {
		return c.Search.SearchRelatedInformation(ctx, req.Query, req.Focus)
	})
}

type findEventsRequest struct {
	Content  string `json:"content"`
	Location string `json:"location"`
}

// FindEvents searches for events related to the given content.
func (c *Controller) FindEvents(ctx echo.Context) error {
	var req findEventsRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.HandleError(ctx, nil, "Conteúdo é obrigatório", http.StatusBadRequest)
	}
	return c.runSearch(ctx, "find_events", func(ctx context.Context) (*perplexity.SearchResult, perplexity.Usage, error) {
		return c.Search.FindRelatedEvents(ctx, req.Content, req.Location)
	})
}

type suggestToolsRequest struct {
	Content  string `json:"content"`
	Platform string `json:"platform"`
}

// SuggestTools searches for tools relevant to the given content.
func (c *Controller) SuggestTools(ctx echo.Context) error {
	var req suggestToolsRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.HandleError(ctx, nil, "Conteúdo é obrigatório", http.StatusBadRequest)
	}
	return c.runSearch(ctx, "suggest_tools", func(ctx context.Context) (*perplexity.SearchResult, perplexity.Usage, error) {
		return c.Search.SuggestTools(ctx, req.Content, req.Platform)
	})
}

type marketInsightsRequest struct {
	Topic    string `json:"topic"`
	Industry string `json:"industry"`
}

// MarketInsights searches for market context on a topic.
func (c *Controller) MarketInsights(ctx echo.Context) error {
	var req marketInsightsRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		return c.HandleError(ctx, nil, "Tópico é obrigatório", http.StatusBadRequest)
	}
	return c.runSearch(ctx, "market_insights", func(ctx context.Context) (*perplexity.SearchResult, perplexity.Usage, error) {
		return c.Search.GetMarketInsights(ctx, req.Topic, req.Industry)
	})
}

type factCheckRequest struct {
	Claim string `json:"claim"`
}

// FactCheck verifies a claim against current web sources.
func (c *Controller) FactCheck(ctx echo.Context) error {
	var req factCheckRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Claim) == "" {
		return c.HandleError(ctx, nil, "Afirmação é obrigatória", http.StatusBadRequest)
	}
	return c.runSearch(ctx, "fact_check", func(ctx context.Context) (*perplexity.SearchResult, perplexity.Usage, error) {
		return c.Search.FactCheck(ctx, req.Claim)
	})
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

// AnalyzeText runs the note analysis prompt on arbitrary text without
// touching any stored note.
func (c *Controller) AnalyzeText(ctx echo.Context) error {
	user := currentUser(ctx)

	var req analyzeTextRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.HandleError(ctx, nil, "Texto é obrigatório", http.StatusBadRequest)
	}
	if c.Analysis == nil {
		return c.HandleError(ctx, nil, "Serviço de IA não configurado", http.StatusServiceUnavailable)
	}
	if err := c.checkQuota(ctx, user); err != nil {
		return err
	}

	analysis, usage, err := c.Analysis.AnalyzeNote(ctx.Request().Context(), req.Text, user.GetPreferences())
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao analisar texto", http.StatusBadGateway)
	}
	c.logDirectUsage(user.ID, "chatgpt", "analyze_text", usage.TokensUsed, usage.Cost)

	return ctx.JSON(http.StatusOK, map[string]any{"analysis": analysis})
}

// ExtractTasks pulls actionable tasks out of arbitrary text.
func (c *Controller) ExtractTasks(ctx echo.Context) error {
	user := currentUser(ctx)

	var req analyzeTextRequest
	if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.HandleError(ctx, nil, "Texto é obrigatório", http.StatusBadRequest)
	}
	if c.Analysis == nil {
		return c.HandleError(ctx, nil, "Serviço de IA não configurado", http.StatusServiceUnavailable)
	}
	if err := c.checkQuota(ctx, user); err != nil {
		return err
	}

	extraction, usage, err := c.Analysis.ExtractTasks(ctx.Request().Context(), req.Text)
	if err != nil {
		return c.HandleError(ctx, err, "Erro ao extrair tarefas", http.StatusBadGateway)
	}
	c.logDirectUsage(user.ID, "chatgpt", "extract_tasks", usage.TokensUsed, usage.Cost)

	return ctx.JSON(http.StatusOK, map[string]any{"extraction": extraction})
}

// TestConnections probes each configured provider with a minimal request.
func (c *Controller) TestConnections(ctx echo.Context) error {
	status := map[string]any{
		"chatgpt":    map[string]any{"configured": c.Analysis != nil},
		"perplexity": map[string]any{"configured": c.Search != nil},
	}
	if c.Analysis != nil {
		status["chatgpt"] = map[string]any{
			"configured": true,
			"reachable":  c.Analysis.TestConnection(ctx.Request().Context()),
		}
	}
	if c.Search != nil {
		status["perplexity"] = map[string]any{
			"configured": true,
			"reachable":  c.Search.TestConnection(ctx.Request().Context()),
		}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"connections": status})
}
