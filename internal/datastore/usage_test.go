package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyUsage(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	for i := 0; i < 3; i++ {
		require.NoError(t, ds.LogUsage(&UsageLog{
			UserID:     user.ID,
			APIType:    APITypeChatGPT,
			Endpoint:   "analyze_note",
			TokensUsed: 120,
			Cost:       0.000024,
		}))
	}
	require.NoError(t, ds.LogUsage(&UsageLog{
		UserID:  user.ID,
		APIType: APITypePerplexity,
	}))

	// entry outside the day window
	old := UsageLog{UserID: user.ID, APIType: APITypeChatGPT}
	require.NoError(t, ds.LogUsage(&old))
	require.NoError(t, ds.DB.Model(&UsageLog{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -1)).Error)

	dayStart := time.Now().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	count, err := ds.DailyUsage(user.ID, APITypeChatGPT, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := ds.DailyUsage(user.ID, "", dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all)
}

func TestUsageTotals(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	user := seedTestUser(t, ds)

	require.NoError(t, ds.LogUsage(&UsageLog{UserID: user.ID, APIType: APITypeChatGPT, TokensUsed: 100, Cost: 0.00002}))
	require.NoError(t, ds.LogUsage(&UsageLog{UserID: user.ID, APIType: APITypePerplexity, TokensUsed: 250, Cost: 0.00025}))

	totals, err := ds.UsageTotals(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.TotalCalls)
	assert.Equal(t, int64(350), totals.TotalTokens)
	assert.InDelta(t, 0.00027, totals.TotalCost, 1e-9)
}

func TestLogUsageValidation(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	err := ds.LogUsage(&UsageLog{APIType: APITypeChatGPT})
	require.Error(t, err)
}
