package ai

import (
	"sort"

	"github.com/rmoura/notara-go/internal/errors"
)

const (
	relatedCandidateLimit  = 50
	relatedSimilarityScore = 0.3
	relatedPersistLimit    = 5
	relatedResultLimit     = 10
)

// RelatedNote is one similarity match against another of the user's notes.
type RelatedNote struct {
	NoteID     string  `json:"note_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	Category   string  `json:"category,omitempty"`
}

// FindRelatedNotes scores the user's other notes by keyword overlap with the
// given note, persists the strongest matches on it and returns the ranked
// list. Purely lexical, no provider call.
func (p *Processor) FindRelatedNotes(noteID string) ([]RelatedNote, error) {
	note, err := p.store.GetNote(noteID)
	if err != nil {
		return nil, err
	}

	keywords := extractKeywords(note.Content)
	if len(keywords) == 0 {
		note.SetRelatedNotes(nil)
		if err := p.store.UpdateNote(&note); err != nil {
			return nil, errors.New(err).
				Component("ai").
				Category(errors.CategoryDatabase).
				Context("note_id", noteID).
				Build()
		}
		return []RelatedNote{}, nil
	}

	candidates, err := p.store.GetOtherNotes(note.UserID, note.ID, relatedCandidateLimit)
	if err != nil {
		return nil, err
	}

	matches := make([]RelatedNote, 0, len(candidates))
	for i := range candidates {
		score := keywordSimilarity(keywords, candidates[i].Content)
		if score <= relatedSimilarityScore {
			continue
		}
		category := ""
		if candidates[i].Category != nil {
			category = *candidates[i].Category
		}
		matches = append(matches, RelatedNote{
			NoteID:     candidates[i].ID,
			Title:      candidates[i].Title(),
			Similarity: score,
			Category:   category,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	persisted := make([]string, 0, relatedPersistLimit)
	for i := 0; i < len(matches) && i < relatedPersistLimit; i++ {
		persisted = append(persisted, matches[i].NoteID)
	}
	note.SetRelatedNotes(persisted)
	if err := p.store.UpdateNote(&note); err != nil {
		return nil, errors.New(err).
			Component("ai").
			Category(errors.CategoryDatabase).
			Context("note_id", noteID).
			Build()
	}

	if len(matches) > relatedResultLimit {
		matches = matches[:relatedResultLimit]
	}

	logger.Debug("Related notes computed",
		"note_id", noteID,
		"keywords", len(keywords),
		"matches", len(matches))

	return matches, nil
}
