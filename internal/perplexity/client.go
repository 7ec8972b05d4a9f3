// Package perplexity provides a client for the Perplexity web search API,
// used to enrich notes with up-to-date external information.
package perplexity

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
	"time"

	"github.com/antonholmquist/jason"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/rmoura/notara-go/internal/logging"
	"github.com/rmoura/notara-go/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// costPerThousandTokens is the estimated sonar pricing used for quota
// accounting.
const costPerThousandTokens = 0.001

// Package-level logger specific to the perplexity service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "perplexity.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "perplexity", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize perplexity file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "perplexity")
		closeLogger = func() error { return nil }
	}
}

// Config holds configuration for the Perplexity client
type Config struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	Timeout     time.Duration `json:"timeout"`
	RateLimitMS int           `json:"rate_limit_ms"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.perplexity.ai",
		Model:       "llama-3.1-sonar-small-128k-online",
		Timeout:     30 * time.Second,
		RateLimitMS: 500,
	}
}

// Usage reports the token consumption and estimated cost of one API call.
type Usage struct {
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
}

// SearchResult holds the model's answer plus the web sources it cited.
type SearchResult struct {
	Content   string   `json:"content"`
	Citations []string `json:"citations"`
}

// Client provides methods for the Perplexity chat completions API
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

// NewClient creates a new Perplexity API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("Perplexity API key is required").
			Category(errors.CategoryConfiguration).
			Component("perplexity").
			Build()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
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

	logger.Info("Perplexity client initialized",
		"base_url", config.BaseURL,
		"model", config.Model,
		"debug", debug)

	return client, nil
}

// ConfigFromSettings builds a client config from application settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		APIKey:  settings.Perplexity.APIKey,
		BaseURL: settings.Perplexity.BaseURL,
		Model:   settings.Perplexity.Model,
	}
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("Closing Perplexity client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing perplexity logger: %v", err)
		}
	}
}

// SearchRelatedInformation searches the web for information related to a
// note's content. An optional focus narrows the query.
func (c *Client) SearchRelatedInformation(ctx context.Context, noteContent, searchFocus string) (*SearchResult, Usage, error) {
	var query string
	if searchFocus != "" {
		query = fmt.Sprintf("Busque informações atualizadas sobre: %s. Contexto: %s", searchFocus, truncate(noteContent, 300))
	} else {
		query = "Busque informações relevantes e atualizadas relacionadas a: " + truncate(noteContent, 300)
	}
	return c.search(ctx, "search_information", searchSystemPrompt, query, 1000, 0.2)
}

// FindRelatedEvents searches for events and activities related to a note.
func (c *Client) FindRelatedEvents(ctx context.Context, noteContent, location string) (*SearchResult, Usage, error) {
	var locationContext string
	if location != "" {
		locationContext = " em " + location
	}
	query := fmt.Sprintf("Busque eventos, conferências, workshops ou atividades relacionadas a: %s%s. Inclua datas, locais e informações de inscrição quando disponíveis.",
		truncate(noteContent, 200), locationContext)
	return c.search(ctx, "find_events", eventsSystemPrompt, query, 800, 0.3)
}

// SuggestTools searches for tools and applications related to a note.
func (c *Client) SuggestTools(ctx context.Context, noteContent, platform string) (*SearchResult, Usage, error) {
	var platformContext string
	if platform != "" {
		platformContext = " para " + platform
	}
	query := fmt.Sprintf("Sugira ferramentas, aplicativos e recursos úteis relacionados a: %s%s. Inclua opções gratuitas e pagas, com descrições e links quando possível.",
		truncate(noteContent, 200), platformContext)
	return c.search(ctx, "suggest_tools", toolsSystemPrompt, query, 800, 0.3)
}

// GetMarketInsights searches for market data about a topic.
func (c *Client) GetMarketInsights(ctx context.Context, topic, industry string) (*SearchResult, Usage, error) {
	var industryContext string
	if industry != "" {
		industryContext = " na indústria de " + industry
	}
	query := fmt.Sprintf("Forneça insights de mercado atualizados sobre: %s%s. Inclua tendências, estatísticas, oportunidades e desafios.",
		topic, industryContext)
	return c.search(ctx, "market_insights", marketSystemPrompt, query, 1000, 0.2)
}

// FactCheck verifies a claim against web sources.
func (c *Client) FactCheck(ctx context.Context, claim string) (*SearchResult, Usage, error) {
	query := "Verifique a veracidade desta informação e forneça fontes confiáveis: " + claim
	return c.search(ctx, "fact_check", factCheckSystemPrompt, query, 600, 0.1)
}

// TestConnection performs a minimal API call to verify credentials.
func (c *Client) TestConnection(ctx context.Context) bool {
	payload := searchRequest{
		Model:     c.config.Model,
		Messages:  []message{{Role: "user", Content: "Hello"}},
		MaxTokens: 5,
	}
	_, _, err := c.doRequest(ctx, "test_connection", payload)
	return err == nil
}

type searchRequest struct {
	Model           string    `json:"model"`
	Messages        []message `json:"messages"`
	MaxTokens       int       `json:"max_tokens"`
	Temperature     float64   `json:"temperature"`
	ReturnCitations bool      `json:"return_citations,omitempty"`
	ReturnImages    bool      `json:"return_images,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) search(ctx context.Context, endpoint, systemPrompt, query string, maxTokens int, temperature float64) (*SearchResult, Usage, error) {
	payload := searchRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		MaxTokens:       maxTokens,
		Temperature:     temperature,
		ReturnCitations: true,
	}

	result, usage, err := c.doRequest(ctx, endpoint, payload)
	if err != nil {
		return nil, usage, err
	}

	logger.Debug("Perplexity search completed",
		"endpoint", endpoint,
		"citations", len(result.Citations),
		"tokens", usage.TokensUsed)

	return result, usage, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, payload searchRequest) (*SearchResult, Usage, error) {
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
			c.metrics.RecordAPICall("perplexity", endpoint, "network_error")
		}
		return nil, Usage{}, errors.New(err).
			Component("perplexity").
			Category(errors.CategoryNetwork).
			Context("endpoint", endpoint).
			Build()
	}
	if c.metrics != nil {
		c.metrics.RecordAPICall("perplexity", endpoint, strconv.Itoa(resp.StatusCode))
		c.metrics.ObserveAPICallDuration("perplexity", endpoint, time.Since(start).Seconds())
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
		logger.Debug("Perplexity API response",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"duration", time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, Usage{}, errors.Newf("Perplexity API error: %d - %s", resp.StatusCode, truncate(string(respBody), 200)).
			Component("perplexity").
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
			c.metrics.RecordUsage("perplexity", usage.TokensUsed, usage.Cost)
		}
	}

	choices, err := root.GetObjectArray("choices")
	if err != nil || len(choices) == 0 {
		return nil, usage, errors.Newf("Perplexity response contains no choices").
			Component("perplexity").
			Category(errors.CategoryProvider).
			Context("endpoint", endpoint).
			Build()
	}

	content, err := choices[0].GetString("message", "content")
	if err != nil {
		return nil, usage, fmt.Errorf("failed to read completion content: %w", err)
	}

	result := &SearchResult{Content: content}
	if citations, err := root.GetStringArray("citations"); err == nil {
		result.Citations = citations
	}

	return result, usage, nil
}

// calculateCost estimates the dollar cost of a call from its token count.
func calculateCost(tokens int) float64 {
	return float64(tokens) / 1000 * costPerThousandTokens
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
