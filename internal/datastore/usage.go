package datastore

import (
	"fmt"
	"time"

	"github.com/rmoura/notara-go/internal/errors"
)

// LogUsage appends an entry to the usage ledger. Each entry is committed
// immediately so quota checks see it right away.
func (ds *DataStore) LogUsage(entry *UsageLog) error {
	if entry.UserID == "" || entry.APIType == "" {
		return errors.Newf("usage entry requires user and api type").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := ds.DB.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// DailyUsage counts a user's provider calls within [dayStart, dayEnd).
// An empty apiType counts calls across all providers.
func (ds *DataStore) DailyUsage(userID, apiType string, dayStart, dayEnd time.Time) (int64, error) {
	query := ds.DB.Model(&UsageLog{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, dayStart, dayEnd)
	if apiType != "" {
		query = query.Where("api_type = ?", apiType)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count daily usage: %w", err)
	}
	return count, nil
}

// UsageTotals aggregates a user's lifetime provider usage.
func (ds *DataStore) UsageTotals(userID string) (UsageTotals, error) {
	var totals UsageTotals
	err := ds.DB.Model(&UsageLog{}).
		Select("COUNT(*) as total_calls, COALESCE(SUM(tokens_used), 0) as total_tokens, COALESCE(SUM(cost), 0) as total_cost").
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return UsageTotals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return totals, nil
}
