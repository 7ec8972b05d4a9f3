package datastore

import (
	"fmt"
	"strings"
	"time"

	"github.com/rmoura/notara-go/internal/errors"
	"gorm.io/gorm"
)

// CreateNote inserts a new note record.
func (ds *DataStore) CreateNote(note *Note) error {
	if strings.TrimSpace(note.Content) == "" {
		return errors.Newf("note content is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ds.DB.Create(note).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_note").
			Build()
	}
	return nil
}

// GetNote retrieves a note by its ID.
func (ds *DataStore) GetNote(id string) (Note, error) {
	var note Note
	if err := ds.DB.Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Note{}, errors.Newf("note not found: %s", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("note_id", id).
				Build()
		}
		return Note{}, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return note, nil
}

// UpdateNote saves all fields of an existing note.
func (ds *DataStore) UpdateNote(note *Note) error {
	result := ds.DB.Model(&Note{}).Where("id = ?", note.ID).Select("*").Omit("id", "created_at").Updates(note)
	if result.Error != nil {
		return fmt.Errorf("failed to update note %s: %w", note.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("note not found: %s", note.ID).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("note_id", note.ID).
			Build()
	}
	return nil
}

// DeleteNote removes a note and its dependent insights and media files.
func (ds *DataStore) DeleteNote(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", id).Delete(&Insight{}).Error; err != nil {
			return fmt.Errorf("failed to delete note insights: %w", err)
		}
		if err := tx.Where("note_id = ?", id).Delete(&MediaFile{}).Error; err != nil {
			return fmt.Errorf("failed to delete note media: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&Note{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete note: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.Newf("note not found: %s", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("note_id", id).
				Build()
		}
		return nil
	})
}

// SearchNotes returns a page of notes matching the filter plus the total
// number of matches before pagination.
func (ds *DataStore) SearchNotes(filter NoteFilter) ([]Note, int64, error) {
	query := ds.DB.Model(&Note{}).Where("user_id = ?", filter.UserID)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	for _, tag := range filter.Tags {
		// tags are stored as a JSON string array, match the quoted element
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	if filter.Search != "" {
		query = query.Where("content LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notes: %w", err)
	}

	sort := filter.Sort
	if sort != "created_at" && sort != "updated_at" {
		sort = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		order = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var notes []Note
	err := query.Order(sort + " " + order).
		Limit(limit).
		Offset(filter.Offset).
		Find(&notes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search notes: %w", err)
	}
	return notes, total, nil
}

// GetNotesForDay returns a user's notes created within [start, end), oldest first.
func (ds *DataStore) GetNotesForDay(userID string, start, end time.Time) ([]Note, error) {
	var notes []Note
	err := ds.DB.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for day: %w", err)
	}
	return notes, nil
}

// GetUncategorizedNotes returns notes without a category, oldest first.
func (ds *DataStore) GetUncategorizedNotes(userID string, limit int) ([]Note, error) {
	query := ds.DB.Where("user_id = ? AND (category IS NULL OR category = '')", userID).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var notes []Note
	if err := query.Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to get uncategorized notes: %w", err)
	}
	return notes, nil
}

// GetPendingNotes returns notes awaiting AI processing, oldest first. An
// empty userID spans all users.
func (ds *DataStore) GetPendingNotes(userID string, limit int) ([]Note, error) {
	query := ds.DB.Where("status = ?", StatusPending).Order("created_at ASC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var notes []Note
	if err := query.Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to get pending notes: %w", err)
	}
	return notes, nil
}

// GetOtherNotes returns a user's most recent notes excluding one note,
// used as candidates for relatedness scoring.
func (ds *DataStore) GetOtherNotes(userID, excludeNoteID string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	var notes []Note
	err := ds.DB.Where("user_id = ? AND id <> ?", userID, excludeNoteID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate notes: %w", err)
	}
	return notes, nil
}

// MarkNoteProcessing claims a note for a pipeline run. Any settled state can
// start a fresh cycle; only a note already claimed by a concurrent worker is
// refused.
func (ds *DataStore) MarkNoteProcessing(id string) error {
	return ds.transitionNote(id, []string{StatusPending, StatusFailed, StatusProcessed}, StatusProcessing, nil)
}

// MarkNoteProcessed transitions a note from processing to processed and
// stamps the processing time.
func (ds *DataStore) MarkNoteProcessed(id string) error {
	now := time.Now()
	return ds.transitionNote(id, []string{StatusProcessing}, StatusProcessed, map[string]any{
		"ai_processed_at": &now,
	})
}

// MarkNoteFailed transitions a note to failed and records the reason in
// its metadata.
func (ds *DataStore) MarkNoteFailed(id, reason string) error {
	note, err := ds.GetNote(id)
	if err != nil {
		return err
	}
	note.UpdateMetadata("failure_reason", reason)
	updates := map[string]any{
		"status":   StatusFailed,
		"metadata": note.Metadata,
	}
	result := ds.DB.Model(&Note{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark note failed: %w", result.Error)
	}
	return nil
}

// transitionNote applies a guarded status transition. The update matches only
// if the current status is one of the allowed source states, so concurrent
// workers cannot double-claim a note.
func (ds *DataStore) transitionNote(id string, from []string, to string, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := ds.DB.Model(&Note{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition note %s to %s: %w", id, to, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("note %s is not in a valid state for transition to %s", id, to).
			Component("datastore").
			Category(errors.CategoryState).
			Context("note_id", id).
			Context("target_status", to).
			Build()
	}
	return nil
}

// CountNotesByStatus returns per-status note counts for a user.
func (ds *DataStore) CountNotesByStatus(userID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := ds.DB.Model(&Note{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count notes by status: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountNotesInCategory counts a user's notes carrying the given category name.
func (ds *DataStore) CountNotesInCategory(userID, categoryName string) (int64, error) {
	var count int64
	err := ds.DB.Model(&Note{}).
		Where("user_id = ? AND category = ?", userID, categoryName).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notes in category: %w", err)
	}
	return count, nil
}

// DetachNotesFromCategory clears the category of all affected notes.
func (ds *DataStore) DetachNotesFromCategory(userID, categoryName string) error {
	err := ds.DB.Model(&Note{}).
		Where("user_id = ? AND category = ?", userID, categoryName).
		Update("category", nil).Error
	if err != nil {
		return fmt.Errorf("failed to detach notes from category: %w", err)
	}
	return nil
}

// renameNoteCategory rewrites the denormalized category name on notes.
func renameNoteCategory(tx *gorm.DB, userID, oldName, newName string) error {
	err := tx.Model(&Note{}).
		Where("user_id = ? AND category = ?", userID, oldName).
		Update("category", newName).Error
	if err != nil {
		return fmt.Errorf("failed to rename note category: %w", err)
	}
	return nil
}
