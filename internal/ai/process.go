package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
	"github.com/rmoura/notara-go/internal/perplexity"
)

// ProcessResult reports the outcome of a full note enrichment run. Error is
// a user-facing message, the pipeline never panics or propagates.
type ProcessResult struct {
	Success      bool                     `json:"success"`
	NoteID       string                   `json:"note_id,omitempty"`
	Error        string                   `json:"error,omitempty"`
	Analysis     *chatgpt.NoteAnalysis    `json:"analysis,omitempty"`
	ExternalInfo *perplexity.SearchResult `json:"external_info,omitempty"`
	Tasks        []chatgpt.TaskItem       `json:"tasks,omitempty"`
}

// ProcessNote runs the full enrichment pipeline on one note: analysis,
// conditional external search and task extraction. A provider failure in
// one stage skips that stage's results but the pipeline continues; only
// infrastructure failures mark the note failed.
func (p *Processor) ProcessNote(ctx context.Context, noteID string, prefs map[string]any) ProcessResult {
	note, err := p.store.GetNote(noteID)
	if err != nil {
		return ProcessResult{Error: "Anotação não encontrada"}
	}

	user, err := p.store.GetUser(note.UserID)
	if err != nil {
		return ProcessResult{NoteID: noteID, Error: "Usuário não encontrado"}
	}

	allowed, err := p.CanUseAI(&user)
	if err != nil {
		return ProcessResult{NoteID: noteID, Error: shortError(err)}
	}
	if !allowed {
		if p.metrics != nil {
			p.metrics.RecordQuotaRejection()
		}
		// the note stays pending so a later run can pick it up
		return ProcessResult{NoteID: noteID, Error: "Limite de uso de IA atingido"}
	}

	if err := p.store.MarkNoteProcessing(noteID); err != nil {
		return ProcessResult{NoteID: noteID, Error: shortError(err)}
	}
	note.Status = datastore.StatusProcessing

	result := ProcessResult{NoteID: noteID}

	// Stage A: structured analysis
	if p.analysis != nil {
		stageStart := time.Now()
		analysis, usage, err := p.analysis.AnalyzeNote(ctx, note.Content, prefs)
		p.observeStage("analysis", stageStart)
		if err != nil {
			logger.Warn("Note analysis failed, stage skipped",
				"note_id", noteID,
				"error", err)
		} else {
			p.logUsage(note.UserID, datastore.APITypeChatGPT, "analyze_note", usage.TokensUsed, usage.Cost)
			result.Analysis = analysis
			p.applyAnalysis(&note, analysis)
		}
	}

	// Stage B: conditional external search
	if p.search != nil && shouldSearchExternalInfo(note.Content) {
		stageStart := time.Now()
		info, usage, err := p.search.SearchRelatedInformation(ctx, note.Content, "")
		p.observeStage("external_search", stageStart)
		if err != nil {
			logger.Warn("External search failed, stage skipped",
				"note_id", noteID,
				"error", err)
		} else {
			p.logUsage(note.UserID, datastore.APITypePerplexity, "search_information", usage.TokensUsed, usage.Cost)
			result.ExternalInfo = info
			p.createExternalInsight(&note, info)
		}
	}

	// Stage C: task extraction
	if p.analysis != nil {
		stageStart := time.Now()
		extraction, usage, err := p.analysis.ExtractTasks(ctx, note.Content)
		p.observeStage("task_extraction", stageStart)
		if err != nil {
			logger.Warn("Task extraction failed, stage skipped",
				"note_id", noteID,
				"error", err)
		} else {
			p.logUsage(note.UserID, datastore.APITypeChatGPT, "extract_tasks", usage.TokensUsed, usage.Cost)
			result.Tasks = extraction.Tasks
			p.applyTasks(&note, extraction)
		}
	}

	if err := p.store.UpdateNote(&note); err != nil {
		p.failNote(noteID, shortError(err))
		p.recordOutcome("failed")
		return ProcessResult{NoteID: noteID, Error: shortError(err)}
	}
	if err := p.store.MarkNoteProcessed(noteID); err != nil {
		p.failNote(noteID, shortError(err))
		p.recordOutcome("failed")
		return ProcessResult{NoteID: noteID, Error: shortError(err)}
	}

	if p.messenger != nil && user.WhatsAppOptIn && result.Analysis != nil {
		p.messenger.SendInsights(ctx, user.ID, result.Analysis)
	}

	logger.Info("Note processed",
		"note_id", noteID,
		"user_id", user.ID,
		"analyzed", result.Analysis != nil,
		"external_info", result.ExternalInfo != nil,
		"tasks", len(result.Tasks))

	p.recordOutcome("processed")
	result.Success = true
	return result
}

func (p *Processor) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStageDuration(stage, time.Since(start).Seconds())
	}
}

func (p *Processor) recordOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordNoteProcessed(outcome)
	}
}

// applyAnalysis writes the analysis results onto the note and creates the
// derived insights.
func (p *Processor) applyAnalysis(note *datastore.Note, analysis *chatgpt.NoteAnalysis) {
	if analysis.CategorySuggestion != "" {
		category, err := p.store.FindOrCreateCategory(note.UserID, analysis.CategorySuggestion)
		if err != nil {
			logger.Warn("Failed to resolve suggested category",
				"note_id", note.ID,
				"category", analysis.CategorySuggestion,
				"error", err)
		} else {
			note.Category = &category.Name
		}
	}

	note.SetTags(analysis.Tags)

	if analysis.Summary != "" {
		confidence := analysis.ConfidenceScore
		if confidence == 0 {
			confidence = 0.8
		}
		p.createInsight(&datastore.Insight{
			UserID:          note.UserID,
			NoteID:          note.ID,
			InsightType:     datastore.InsightSummary,
			Content:         analysis.Summary,
			ConfidenceScore: confidence,
		})
	}

	for _, action := range analysis.ActionItems {
		insight := datastore.Insight{
			UserID:          note.UserID,
			NoteID:          note.ID,
			InsightType:     datastore.InsightAction,
			Content:         action.Action,
			ConfidenceScore: 0.7,
		}
		insight.SetMetadata(map[string]any{"priority": action.Priority})
		p.createInsight(&insight)
	}

	if len(analysis.RelatedTopics) > 0 {
		p.createInsight(&datastore.Insight{
			UserID:          note.UserID,
			NoteID:          note.ID,
			InsightType:     datastore.InsightConnection,
			Content:         "Tópicos relacionados: " + strings.Join(analysis.RelatedTopics, ", "),
			ConfidenceScore: 0.6,
		})
	}
}

// createExternalInsight stores exactly one insight for a web search result.
func (p *Processor) createExternalInsight(note *datastore.Note, info *perplexity.SearchResult) {
	insight := datastore.Insight{
		UserID:          note.UserID,
		NoteID:          note.ID,
		InsightType:     datastore.InsightExternalInfo,
		Content:         info.Content,
		ConfidenceScore: 0.8,
	}
	insight.SetMetadata(map[string]any{
		"citations": info.Citations,
		"source":    "perplexity",
	})
	p.createInsight(&insight)
}

// applyTasks creates task insights and sets the suggested deadline from the
// first task carrying a parseable date. Unparseable dates are skipped.
func (p *Processor) applyTasks(note *datastore.Note, extraction *chatgpt.TaskExtraction) {
	for _, task := range extraction.Tasks {
		if note.DeadlineSuggested == nil && task.Deadline != "" {
			if deadline, err := time.Parse("2006-01-02", task.Deadline); err == nil {
				note.DeadlineSuggested = &deadline
			}
		}

		confidence := task.Confidence
		if confidence == 0 {
			confidence = 0.7
		}
		insight := datastore.Insight{
			UserID:          note.UserID,
			NoteID:          note.ID,
			InsightType:     datastore.InsightTask,
			Content:         task.Task,
			ConfidenceScore: confidence,
		}
		insight.SetMetadata(map[string]any{
			"deadline": task.Deadline,
			"priority": task.Priority,
		})
		p.createInsight(&insight)
	}
}

func (p *Processor) createInsight(insight *datastore.Insight) {
	if err := p.store.CreateInsight(insight); err != nil {
		logger.Error("Failed to create insight",
			"note_id", insight.NoteID,
			"insight_type", insight.InsightType,
			"error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.RecordInsightCreated(insight.InsightType)
	}
}

// ProcessDailyNotes summarizes a user's notes for one calendar day and
// optionally pushes the summary over WhatsApp. The notes themselves are not
// modified.
func (p *Processor) ProcessDailyNotes(ctx context.Context, userID, date string) (*chatgpt.DailySummary, int, error) {
	loc, err := conf.QuotaLocation(p.settings)
	if err != nil {
		logger.Warn("Invalid quota timezone, falling back to UTC", "error", err)
		loc = time.UTC
	}
	if date == "" {
		date = time.Now().In(loc).Format("2006-01-02")
	}
	start, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, 0, errors.Newf("invalid date: %s", date).
			Component("ai").
			Category(errors.CategoryValidation).
			Context("date", date).
			Build()
	}
	end := start.AddDate(0, 0, 1)

	notes, err := p.store.GetNotesForDay(userID, start, end)
	if err != nil {
		return nil, 0, err
	}
	if len(notes) == 0 {
		return nil, 0, nil
	}

	contexts := make([]chatgpt.NoteContext, 0, len(notes))
	for i := range notes {
		category := ""
		if notes[i].Category != nil {
			category = *notes[i].Category
		}
		contexts = append(contexts, chatgpt.NoteContext{
			Content:  notes[i].Content,
			Category: category,
		})
	}

	if p.analysis == nil {
		return nil, 0, errors.Newf("analysis client is not configured").
			Component("ai").
			Category(errors.CategoryConfiguration).
			Context("user_id", userID).
			Build()
	}
	summary, usage, err := p.analysis.GenerateDailySummary(ctx, contexts, date)
	if err != nil {
		return nil, 0, err
	}
	p.logUsage(userID, datastore.APITypeChatGPT, "daily_summary", usage.TokensUsed, usage.Cost)

	if p.messenger != nil {
		if user, err := p.store.GetUser(userID); err == nil && user.WhatsAppOptIn {
			p.messenger.SendDailySummary(ctx, userID, summary)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.PushDailySummary(date, len(notes), summary); err != nil {
			logger.Warn("Daily summary push failed", "user_id", userID, "error", err)
		}
	}

	return summary, len(notes), nil
}
