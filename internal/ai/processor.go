// Package ai orchestrates the note enrichment pipeline: analysis,
// conditional external search, task extraction and daily summaries.
package ai

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/rmoura/notara-go/internal/logging"
	"github.com/rmoura/notara-go/internal/observability/metrics"
	"github.com/rmoura/notara-go/internal/perplexity"
)

// Package-level logger specific to the ai service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "ai.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "ai", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize ai file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "ai")
		closeLogger = func() error { return nil }
	}
}

// AnalysisClient is the language model interface the processor depends on.
type AnalysisClient interface {
	AnalyzeNote(ctx context.Context, content string, prefs map[string]any) (*chatgpt.NoteAnalysis, chatgpt.Usage, error)
	CategorizeNotes(ctx context.Context, notes []chatgpt.NoteRef, existingCategories []string) (*chatgpt.CategorizationResult, chatgpt.Usage, error)
	GenerateDailySummary(ctx context.Context, notes []chatgpt.NoteContext, date string) (*chatgpt.DailySummary, chatgpt.Usage, error)
	ExtractTasks(ctx context.Context, content string) (*chatgpt.TaskExtraction, chatgpt.Usage, error)
}

// SearchClient is the web search interface the processor depends on.
type SearchClient interface {
	SearchRelatedInformation(ctx context.Context, noteContent, searchFocus string) (*perplexity.SearchResult, perplexity.Usage, error)
}

// Messenger delivers processing results to users, best effort.
type Messenger interface {
	SendInsights(ctx context.Context, userID string, analysis *chatgpt.NoteAnalysis) bool
	SendDailySummary(ctx context.Context, userID string, summary *chatgpt.DailySummary) bool
}

// Notifier pushes daily summaries to operator-configured services.
type Notifier interface {
	PushDailySummary(date string, noteCount int, summary *chatgpt.DailySummary) error
}

// Processor coordinates the AI providers, the datastore and outbound
// messaging for every enrichment operation.
type Processor struct {
	store     datastore.Interface
	analysis  AnalysisClient
	search    SearchClient
	messenger Messenger
	settings  *conf.Settings
	metrics   *metrics.PipelineMetrics
	notifier  Notifier
}

// New creates a processor. The messenger may be nil when WhatsApp is
// disabled, the search client may be nil when Perplexity is not configured.
func New(settings *conf.Settings, store datastore.Interface, analysis AnalysisClient, search SearchClient, messenger Messenger) *Processor {
	return &Processor{
		store:     store,
		analysis:  analysis,
		search:    search,
		messenger: messenger,
		settings:  settings,
	}
}

// SetMetrics attaches the pipeline metric collectors. Safe to skip when
// metrics are disabled.
func (p *Processor) SetMetrics(m *metrics.PipelineMetrics) {
	p.metrics = m
}

// SetNotifier attaches an optional push notifier for daily summaries.
func (p *Processor) SetNotifier(n Notifier) {
	p.notifier = n
}

// Close releases processor resources
func (p *Processor) Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing ai logger: %v", err)
		}
	}
}

// quotaWindow returns the current calendar day in the configured quota
// timezone.
func (p *Processor) quotaWindow() (start, end time.Time) {
	loc, err := conf.QuotaLocation(p.settings)
	if err != nil {
		logger.Warn("Invalid quota timezone, falling back to UTC", "error", err)
		loc = time.UTC
	}
	now := time.Now().In(loc)
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CanUseAI reports whether a user may run another AI operation today.
// Premium users are unlimited, free users get a daily allowance.
func (p *Processor) CanUseAI(user *datastore.User) (bool, error) {
	if user.IsPremium() {
		return true, nil
	}

	start, end := p.quotaWindow()
	used, err := p.store.DailyUsage(user.ID, "", start, end)
	if err != nil {
		return false, err
	}
	return used < int64(p.settings.Quota.FreeDailyLimit), nil
}

// logUsage appends a provider call to the usage ledger. Accounting failures
// are logged but never interrupt processing.
func (p *Processor) logUsage(userID, apiType, endpoint string, tokens int, cost float64) {
	err := p.store.LogUsage(&datastore.UsageLog{
		UserID:     userID,
		APIType:    apiType,
		Endpoint:   endpoint,
		TokensUsed: tokens,
		Cost:       cost,
	})
	if err != nil {
		logger.Error("Failed to log API usage",
			"user_id", userID,
			"api_type", apiType,
			"endpoint", endpoint,
			"error", err)
	}
}

// failNote marks a note failed, swallowing secondary errors.
func (p *Processor) failNote(noteID, reason string) {
	if err := p.store.MarkNoteFailed(noteID, reason); err != nil {
		logger.Error("Failed to mark note as failed", "note_id", noteID, "error", err)
	}
}

func shortError(err error) string {
	if err == nil {
		return ""
	}
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.Error()
	}
	return fmt.Sprintf("%v", err)
}
