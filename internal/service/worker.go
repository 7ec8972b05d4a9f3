package service

import (
	"context"
	"fmt"
	"log"

	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
)

// ProcessPending runs the enrichment pipeline over queued notes. An empty
// userID processes every user's backlog. Individual failures are logged
// and do not stop the batch.
func ProcessPending(ctx context.Context, settings *conf.Settings, userID string, limit int) error {
	rt, err := NewRuntime(settings)
	if err != nil {
		return err
	}
	defer rt.Close()

	notes, err := rt.Store.GetPendingNotes(userID, limit)
	if err != nil {
		return fmt.Errorf("failed to list pending notes: %w", err)
	}
	if len(notes) == 0 {
		log.Println("No pending notes to process")
		return nil
	}

	prefsByUser := make(map[string]map[string]any)
	processed := 0
	for i := range notes {
		prefs, ok := prefsByUser[notes[i].UserID]
		if !ok {
			user, err := rt.Store.GetUser(notes[i].UserID)
			if err != nil {
				log.Printf("Skipping note %s, owner lookup failed: %v", notes[i].ID, err)
				continue
			}
			prefs = user.GetPreferences()
			prefsByUser[user.ID] = prefs
		}

		result := rt.Processor.ProcessNote(ctx, notes[i].ID, prefs)
		if !result.Success {
			log.Printf("Note %s not processed: %s", notes[i].ID, result.Error)
			continue
		}
		processed++
	}

	log.Printf("Processed %d of %d pending notes", processed, len(notes))
	return nil
}

// DailySummary generates and delivers the daily summary for one user.
// An empty date means today.
func DailySummary(ctx context.Context, settings *conf.Settings, userID, date string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	rt, err := NewRuntime(settings)
	if err != nil {
		return err
	}
	defer rt.Close()

	summary, noteCount, err := rt.Processor.ProcessDailyNotes(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("failed to generate daily summary: %w", err)
	}
	if summary == nil {
		log.Println("No notes found for the requested day")
		return nil
	}

	log.Printf("Summary for %d notes: %s", noteCount, summary.OverallSummary)
	return nil
}

// CategorizeBatch asks the model to categorize a user's uncategorized
// notes.
func CategorizeBatch(ctx context.Context, settings *conf.Settings, userID string, limit int) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	rt, err := NewRuntime(settings)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Processor.CategorizeUncategorized(ctx, userID, limit)
	if err != nil {
		return fmt.Errorf("failed to categorize notes: %w", err)
	}

	log.Printf("Categorized %d of %d notes, created %d categories",
		result.CategorizedNotes, result.ProcessedNotes, result.CreatedCategories)
	return nil
}

// Status prints queue depth per note status, a quick operational check.
func Status(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database backend enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	counts, err := store.CountNotesByStatus("")
	if err != nil {
		return fmt.Errorf("failed to count notes: %w", err)
	}
	for _, status := range []string{
		datastore.StatusPending, datastore.StatusProcessing,
		datastore.StatusProcessed, datastore.StatusFailed,
	} {
		fmt.Printf("%-12s %d\n", status, counts[status])
	}
	return nil
}
