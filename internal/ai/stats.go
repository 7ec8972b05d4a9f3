package ai

import "github.com/rmoura/notara-go/internal/datastore"

// ProcessingStats summarizes a user's pipeline state and AI consumption.
type ProcessingStats struct {
	NotesByStatus  map[string]int64      `json:"notes_by_status"`
	ActiveInsights int64                 `json:"active_insights"`
	TodayChatGPT   int64                 `json:"today_chatgpt_calls"`
	TodaySearch    int64                 `json:"today_search_calls"`
	Totals         datastore.UsageTotals `json:"totals"`
}

// Stats gathers processing counters for one user. Today's call counts use
// the configured quota timezone, matching the quota gate.
func (p *Processor) Stats(userID string) (ProcessingStats, error) {
	stats := ProcessingStats{}

	byStatus, err := p.store.CountNotesByStatus(userID)
	if err != nil {
		return stats, err
	}
	stats.NotesByStatus = byStatus

	insights, err := p.store.CountInsights(userID)
	if err != nil {
		return stats, err
	}
	stats.ActiveInsights = insights

	start, end := p.quotaWindow()
	if stats.TodayChatGPT, err = p.store.DailyUsage(userID, datastore.APITypeChatGPT, start, end); err != nil {
		return stats, err
	}
	if stats.TodaySearch, err = p.store.DailyUsage(userID, datastore.APITypePerplexity, start, end); err != nil {
		return stats, err
	}

	if stats.Totals, err = p.store.UsageTotals(userID); err != nil {
		return stats, err
	}

	return stats, nil
}
