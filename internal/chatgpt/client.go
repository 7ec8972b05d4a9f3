package chatgpt

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
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/rmoura/notara-go/internal/logging"
	"github.com/rmoura/notara-go/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// costPerThousandTokens is the blended gpt-4o-mini price used for quota
// accounting, input and output tokens are not distinguished.
const costPerThousandTokens = 0.0002

// Package-level logger specific to the chatgpt service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "chatgpt.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "chatgpt", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize chatgpt file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "chatgpt")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for the OpenAI chat completions API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
	metrics    *metrics.ProviderMetrics
}

// SetMetrics attaches the provider metric collectors. Safe to skip when
// metrics are disabled.
func (c *Client) SetMetrics(m *metrics.ProviderMetrics) {
	c.metrics = m
}

// NewClient creates a new ChatGPT API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("ChatGPT API key is required").
			Category(errors.CategoryConfiguration).
			Component("chatgpt").
			Build()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitMS == 0 {
		config.RateLimitMS = defaults.RateLimitMS
	}

	settings := conf.Setting()
	debug := settings != nil && settings.Main.Debug

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Duration(config.RateLimitMS)*time.Millisecond), 1),
		debug:   debug,
	}

	logger.Info("ChatGPT client initialized",
		"base_url", config.BaseURL,
		"model", config.Model,
		"max_tokens", config.MaxTokens,
		"debug", debug)

	return client, nil
}

// ConfigFromSettings builds a client config from application settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		APIKey:    settings.ChatGPT.APIKey,
		BaseURL:   settings.ChatGPT.BaseURL,
		Model:     settings.ChatGPT.Model,
		MaxTokens: settings.ChatGPT.MaxTokens,
	}
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("Closing ChatGPT client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing chatgpt logger: %v", err)
		}
	}
}

// AnalyzeNote analyzes a single note and returns structured insights.
// User preferences customize the prompt, nil is fine.
func (c *Client) AnalyzeNote(ctx context.Context, content string, prefs map[string]any) (*NoteAnalysis, Usage, error) {
	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildAnalysisPrompt(prefs)},
			{Role: "user", Content: "Analise esta anotação:\n\n" + content},
		},
		MaxTokens:      c.config.MaxTokens,
		Temperature:    0.3,
		ResponseFormat: &formatSpec{Type: "json_object"},
	}

	result, usage, err := c.complete(ctx, "analyze_note", req)
	if err != nil {
		return nil, usage, err
	}

	analysis := &NoteAnalysis{
		CategorySuggestion: stringAt(result, "category_suggestion"),
		Tags:               stringsAt(result, "tags"),
		Summary:            stringAt(result, "summary"),
		KeyPoints:          stringsAt(result, "key_points"),
		RelatedTopics:      stringsAt(result, "related_topics"),
		Sentiment:          stringAt(result, "sentiment"),
		ConfidenceScore:    floatAt(result, "confidence_score"),
	}
	if items, err := result.GetObjectArray("action_items"); err == nil {
		for _, item := range items {
			analysis.ActionItems = append(analysis.ActionItems, ActionItem{
				Action:   stringAt(item, "action"),
				Priority: priorityOrDefault(stringAt(item, "priority")),
			})
		}
	}

	logger.Debug("Note analyzed",
		"category", analysis.CategorySuggestion,
		"tags", len(analysis.Tags),
		"tokens", usage.TokensUsed)

	return analysis, usage, nil
}

// CategorizeNotes suggests a category for each note in a batch. Note order
// matters, suggestions refer back to notes by 1-based index.
func (c *Client) CategorizeNotes(ctx context.Context, notes []NoteRef, existingCategories []string) (*CategorizationResult, Usage, error) {
	if len(notes) == 0 {
		return &CategorizationResult{}, Usage{}, nil
	}

	var categoriesContext string
	if len(existingCategories) > 0 {
		categoriesContext = "Categorias existentes: " + strings.Join(existingCategories, ", ") + "\n"
	}

	var notesText strings.Builder
	for i, note := range notes {
		fmt.Fprintf(&notesText, "%d. %s...\n", i+1, truncate(note.Content, 200))
	}

	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: categoriesContext + categorizationPrompt},
			{Role: "user", Content: notesText.String()},
		},
		MaxTokens:      c.config.MaxTokens,
		Temperature:    0.2,
		ResponseFormat: &formatSpec{Type: "json_object"},
	}

	result, usage, err := c.complete(ctx, "categorize_notes", req)
	if err != nil {
		return nil, usage, err
	}

	out := &CategorizationResult{}
	if items, err := result.GetObjectArray("categorizations"); err == nil {
		for _, item := range items {
			out.Categorizations = append(out.Categorizations, Categorization{
				NoteIndex:         int(intAt(item, "note_index")),
				SuggestedCategory: stringAt(item, "suggested_category"),
				Confidence:        floatAt(item, "confidence"),
				Reason:            stringAt(item, "reason"),
			})
		}
	}
	if items, err := result.GetObjectArray("new_categories"); err == nil {
		for _, item := range items {
			out.NewCategories = append(out.NewCategories, NewCategory{
				Name:          stringAt(item, "name"),
				Description:   stringAt(item, "description"),
				SuggestedIcon: stringAt(item, "suggested_icon"),
			})
		}
	}

	logger.Debug("Notes categorized",
		"notes", len(notes),
		"suggestions", len(out.Categorizations),
		"tokens", usage.TokensUsed)

	return out, usage, nil
}

// GenerateDailySummary summarizes one day's notes grouped by category.
func (c *Client) GenerateDailySummary(ctx context.Context, notes []NoteContext, date string) (*DailySummary, Usage, error) {
	var context strings.Builder
	fmt.Fprintf(&context, "Resumo das anotações do dia %s:\n\n", date)
	for category, contents := range groupByCategory(notes) {
		fmt.Fprintf(&context, "**%s:**\n", category)
		for _, content := range contents {
			fmt.Fprintf(&context, "- %s...\n", truncate(content, 150))
		}
		context.WriteString("\n")
	}

	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: dailySummaryPrompt},
			{Role: "user", Content: context.String()},
		},
		MaxTokens:      c.config.MaxTokens,
		Temperature:    0.4,
		ResponseFormat: &formatSpec{Type: "json_object"},
	}

	result, usage, err := c.complete(ctx, "daily_summary", req)
	if err != nil {
		return nil, usage, err
	}

	summaryObj, err := result.GetObject("summary")
	if err != nil {
		return nil, usage, errors.Newf("daily summary response missing summary object").
			Component("chatgpt").
			Category(errors.CategoryProvider).
			Context("operation", "daily_summary").
			Build()
	}

	summary := &DailySummary{
		MainThemes:        stringsAt(summaryObj, "main_themes"),
		KeyInsights:       stringsAt(summaryObj, "key_insights"),
		ActionSuggestions: stringsAt(summaryObj, "action_suggestions"),
		OverallSummary:    stringAt(summaryObj, "overall_summary"),
	}
	if items, err := summaryObj.GetObjectArray("tasks_identified"); err == nil {
		for _, item := range items {
			summary.TasksIdentified = append(summary.TasksIdentified, TaskItem{
				Task:     stringAt(item, "task"),
				Deadline: stringAt(item, "suggested_deadline"),
				Priority: priorityOrDefault(stringAt(item, "priority")),
			})
		}
	}

	return summary, usage, nil
}

// ExtractTasks identifies tasks, deadlines and mentioned dates in a note.
func (c *Client) ExtractTasks(ctx context.Context, content string) (*TaskExtraction, Usage, error) {
	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: taskExtractionPrompt},
			{Role: "user", Content: content},
		},
		MaxTokens:      500,
		Temperature:    0.2,
		ResponseFormat: &formatSpec{Type: "json_object"},
	}

	result, usage, err := c.complete(ctx, "extract_tasks", req)
	if err != nil {
		return nil, usage, err
	}

	extraction := &TaskExtraction{}
	if items, err := result.GetObjectArray("tasks"); err == nil {
		for _, item := range items {
			task := TaskItem{
				Task:       stringAt(item, "task"),
				Deadline:   stringAt(item, "deadline"),
				Priority:   priorityOrDefault(stringAt(item, "priority")),
				Confidence: floatAt(item, "confidence"),
			}
			if task.Confidence == 0 {
				task.Confidence = 0.7
			}
			extraction.Tasks = append(extraction.Tasks, task)
		}
	}
	if items, err := result.GetObjectArray("dates_mentioned"); err == nil {
		for _, item := range items {
			extraction.DatesMentioned = append(extraction.DatesMentioned, DateMention{
				Date:    stringAt(item, "date"),
				Context: stringAt(item, "context"),
			})
		}
	}

	return extraction, usage, nil
}

// TestConnection performs a minimal API call to verify credentials.
func (c *Client) TestConnection(ctx context.Context) bool {
	req := chatRequest{
		Model:     c.config.Model,
		Messages:  []chatMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: 5,
	}
	_, _, err := c.complete(ctx, "test_connection", req)
	return err == nil
}

// NoteContext pairs note content with its category for summary grouping.
type NoteContext struct {
	Content  string
	Category string
}

// complete posts a chat completions request and returns the parsed JSON
// content of the first choice plus usage accounting.
func (c *Client) complete(ctx context.Context, endpoint string, payload chatRequest) (*jason.Object, Usage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Usage{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordAPICall("chatgpt", endpoint, "network_error")
		}
		return nil, Usage{}, errors.New(err).
			Component("chatgpt").
			Category(errors.CategoryNetwork).
			Context("endpoint", endpoint).
			Build()
	}
	if c.metrics != nil {
		c.metrics.RecordAPICall("chatgpt", endpoint, strconv.Itoa(resp.StatusCode))
		c.metrics.ObserveAPICallDuration("chatgpt", endpoint, time.Since(start).Seconds())
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		logger.Debug("ChatGPT API response",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"duration", time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, Usage{}, errors.Newf("OpenAI API error: %d - %s", resp.StatusCode, truncate(string(respBody), 200)).
			Component("chatgpt").
			Category(errors.CategoryProvider).
			Context("endpoint", endpoint).
			Context("status_code", resp.StatusCode).
			Build()
	}

	root, err := jason.NewObjectFromBytes(respBody)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to parse response: %w", err)
	}

	var usage Usage
	if tokens, err := root.GetInt64("usage", "total_tokens"); err == nil {
		usage.TokensUsed = int(tokens)
		usage.Cost = calculateCost(int(tokens))
		if c.metrics != nil {
			c.metrics.RecordUsage("chatgpt", usage.TokensUsed, usage.Cost)
		}
	}

	choices, err := root.GetObjectArray("choices")
	if err != nil || len(choices) == 0 {
		return nil, usage, errors.Newf("OpenAI response contains no choices").
			Component("chatgpt").
			Category(errors.CategoryProvider).
			Context("endpoint", endpoint).
			Build()
	}

	content, err := choices[0].GetString("message", "content")
	if err != nil {
		return nil, usage, fmt.Errorf("failed to read completion content: %w", err)
	}

	result, err := jason.NewObjectFromBytes([]byte(content))
	if err != nil {
		return nil, usage, errors.Newf("model returned malformed JSON: %v", err).
			Component("chatgpt").
			Category(errors.CategoryProvider).
			Context("endpoint", endpoint).
			Build()
	}

	return result, usage, nil
}

// calculateCost estimates the dollar cost of a call from its token count.
func calculateCost(tokens int) float64 {
	return float64(tokens) / 1000 * costPerThousandTokens
}

func groupByCategory(notes []NoteContext) map[string][]string {
	grouped := make(map[string][]string)
	for _, note := range notes {
		category := note.Category
		if category == "" {
			category = "Sem categoria"
		}
		grouped[category] = append(grouped[category], note.Content)
	}
	return grouped
}

func priorityOrDefault(priority string) string {
	switch priority {
	case "alta", "média", "baixa":
		return priority
	default:
		return "média"
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// jason accessor helpers, missing keys yield zero values

func stringAt(obj *jason.Object, key string) string {
	value, err := obj.GetString(key)
	if err != nil {
		return ""
	}
	return value
}

func stringsAt(obj *jason.Object, key string) []string {
	values, err := obj.GetStringArray(key)
	if err != nil {
		return nil
	}
	return values
}

func floatAt(obj *jason.Object, key string) float64 {
	value, err := obj.GetFloat64(key)
	if err != nil {
		return 0
	}
	return value
}

func intAt(obj *jason.Object, key string) int64 {
	value, err := obj.GetInt64(key)
	if err != nil {
		// some models emit numbers as floats
		if f, ferr := obj.GetFloat64(key); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return value
}
