package ai

import (
	"context"

	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/errors"
)

const defaultCategorizeLimit = 10

// CategorizeResult reports the outcome of a batch categorization run.
type CategorizeResult struct {
	ProcessedNotes    int `json:"processed_notes"`
	CategorizedNotes  int `json:"categorized_notes"`
	CreatedCategories int `json:"created_categories"`
}

// CategorizeUncategorized runs batch categorization over the user's notes
// that carry no category yet. Suggested categories are resolved against the
// user's existing set, model-proposed new categories are created unless a
// category with that name already exists.
func (p *Processor) CategorizeUncategorized(ctx context.Context, userID string, limit int) (CategorizeResult, error) {
	if limit <= 0 {
		limit = defaultCategorizeLimit
	}

	notes, err := p.store.GetUncategorizedNotes(userID, limit)
	if err != nil {
		return CategorizeResult{}, err
	}
	if len(notes) == 0 {
		return CategorizeResult{}, nil
	}

	categories, err := p.store.GetCategories(userID)
	if err != nil {
		return CategorizeResult{}, err
	}
	existing := make([]string, 0, len(categories))
	existingSet := make(map[string]struct{}, len(categories))
	for i := range categories {
		existing = append(existing, categories[i].Name)
		existingSet[categories[i].Name] = struct{}{}
	}

	refs := make([]chatgpt.NoteRef, 0, len(notes))
	for i := range notes {
		refs = append(refs, chatgpt.NoteRef{ID: notes[i].ID, Content: notes[i].Content})
	}

	if p.analysis == nil {
		return CategorizeResult{}, errors.Newf("analysis client is not configured").
			Component("ai").
			Category(errors.CategoryConfiguration).
			Context("user_id", userID).
			Build()
	}
	batch, usage, err := p.analysis.CategorizeNotes(ctx, refs, existing)
	if err != nil {
		return CategorizeResult{ProcessedNotes: len(notes)}, err
	}
	p.logUsage(userID, datastore.APITypeChatGPT, "categorize_notes", usage.TokensUsed, usage.Cost)

	result := CategorizeResult{ProcessedNotes: len(notes)}

	for _, c := range batch.Categorizations {
		if c.NoteIndex < 1 || c.NoteIndex > len(notes) || c.SuggestedCategory == "" {
			continue
		}
		note := &notes[c.NoteIndex-1]

		category, err := p.store.FindOrCreateCategory(userID, c.SuggestedCategory)
		if err != nil {
			logger.Warn("Failed to resolve suggested category",
				"note_id", note.ID,
				"category", c.SuggestedCategory,
				"error", err)
			continue
		}
		note.Category = &category.Name
		if err := p.store.UpdateNote(note); err != nil {
			logger.Warn("Failed to categorize note", "note_id", note.ID, "error", err)
			continue
		}
		result.CategorizedNotes++
	}

	for _, nc := range batch.NewCategories {
		if nc.Name == "" {
			continue
		}
		if _, ok := existingSet[nc.Name]; ok {
			continue
		}
		category := datastore.Category{
			UserID:            userID,
			Name:              nc.Name,
			Description:       nc.Description,
			Icon:              nc.SuggestedIcon,
			IsSystemGenerated: true,
		}
		if err := p.store.CreateCategory(&category); err != nil {
			logger.Warn("Failed to create suggested category", "name", nc.Name, "error", err)
			continue
		}
		existingSet[nc.Name] = struct{}{}
		result.CreatedCategories++
	}

	logger.Info("Batch categorization finished",
		"user_id", userID,
		"processed", result.ProcessedNotes,
		"categorized", result.CategorizedNotes,
		"new_categories", result.CreatedCategories)

	return result, nil
}
