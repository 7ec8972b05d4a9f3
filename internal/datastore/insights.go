package datastore

import (
	"fmt"
	"strings"

	"github.com/rmoura/notara-go/internal/errors"
	"gorm.io/gorm"
)

// CreateInsight stores a generated insight for a note.
func (ds *DataStore) CreateInsight(insight *Insight) error {
	if strings.TrimSpace(insight.Content) == "" {
		return errors.Newf("insight content is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ds.DB.Create(insight).Error; err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

// GetInsight retrieves an insight by its ID.
func (ds *DataStore) GetInsight(id string) (Insight, error) {
	var insight Insight
	if err := ds.DB.Where("id = ?", id).First(&insight).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Insight{}, errors.Newf("insight not found: %s", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("insight_id", id).
				Build()
		}
		return Insight{}, fmt.Errorf("failed to get insight %s: %w", id, err)
	}
	return insight, nil
}

// GetNoteInsights returns a note's insights, newest first. Dismissed
// insights are excluded unless requested.
func (ds *DataStore) GetNoteInsights(noteID string, includeDismissed bool) ([]Insight, error) {
	query := ds.DB.Where("note_id = ?", noteID)
	if !includeDismissed {
		query = query.Where("is_dismissed = ?", false)
	}
	var insights []Insight
	if err := query.Order("created_at DESC").Find(&insights).Error; err != nil {
		return nil, fmt.Errorf("failed to get note insights: %w", err)
	}
	return insights, nil
}

// DismissInsight hides an insight without deleting it.
func (ds *DataStore) DismissInsight(id string) error {
	result := ds.DB.Model(&Insight{}).Where("id = ?", id).Update("is_dismissed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to dismiss insight: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("insight not found: %s", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("insight_id", id).
			Build()
	}
	return nil
}

// CountInsights counts all non-dismissed insights across a user's notes.
func (ds *DataStore) CountInsights(userID string) (int64, error) {
	var count int64
	err := ds.DB.Model(&Insight{}).
		Joins("JOIN notes ON notes.id = insights.note_id").
		Where("notes.user_id = ? AND insights.is_dismissed = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count insights: %w", err)
	}
	return count, nil
}

// CreateMediaFile stores a media attachment record for a note.
func (ds *DataStore) CreateMediaFile(media *MediaFile) error {
	if err := ds.DB.Create(media).Error; err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}
	return nil
}

// GetNoteMediaFiles returns a note's media attachments, oldest first.
func (ds *DataStore) GetNoteMediaFiles(noteID string) ([]MediaFile, error) {
	var files []MediaFile
	err := ds.DB.Where("note_id = ?", noteID).Order("created_at ASC").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get media files: %w", err)
	}
	return files, nil
}
