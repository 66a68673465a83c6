package service_test

import (
	"context"
	"testing"
	"time"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/service"
	"dispatch-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStats(t *testing.T) (*service.StatsService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupDB(t)
	stats := service.NewStatsService(
		repository.NewAccessLogRepository(db),
		repository.NewLinkRepository(db),
		nil,
		testutil.Logger(),
	)
	return stats, db
}

func seedLogs(t *testing.T, db *gorm.DB, linkID uint, entries []models.AccessLog) {
	t.Helper()
	for i := range entries {
		entries[i].LinkID = linkID
		require.NoError(t, db.Create(&entries[i]).Error)
	}
}

func TestGetLinkStats(t *testing.T) {
	stats, db := newStats(t)

	link := testutil.CreateLink(t, db, "st0001", "bu01", 1000, "")
	a := testutil.CreateTarget(t, db, link, "https://a.com", 70, 0, "")
	b := testutil.CreateTarget(t, db, link, "https://b.com", 30, 0, "")

	seedLogs(t, db, link.ID, []models.AccessLog{
		{TargetID: &a.ID}, {TargetID: &a.ID}, {TargetID: &a.ID},
		{TargetID: &b.ID},
		{Blocked: true}, // backup/block rows have no target
	})

	got, err := stats.GetLinkStats(context.Background(), "st0001")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "st0001", got.LinkID)
	assert.Equal(t, int64(5), got.TotalHits)
	require.Len(t, got.Targets, 2)
	// Sorted by hits, percentages over targeted hits only.
	assert.Equal(t, a.ID, got.Targets[0].TargetID)
	assert.Equal(t, int64(3), got.Targets[0].Hits)
	assert.InDelta(t, 75.0, got.Targets[0].Percentage, 0.01)
	assert.Equal(t, int64(1), got.Targets[1].Hits)
}

func TestGetLinkStats_UnknownLink(t *testing.T) {
	stats, _ := newStats(t)
	got, err := stats.GetLinkStats(context.Background(), "nosuch")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetRealtimeStats_DatabaseFallback(t *testing.T) {
	stats, db := newStats(t)

	link := testutil.CreateLink(t, db, "rt0001", "bu01", 0, "")
	seedLogs(t, db, link.ID, []models.AccessLog{
		{Country: "US"},
		{Country: "US"},
		{Country: "DE", Blocked: true},
	})

	got, err := stats.GetRealtimeStats(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Len(t, got.Hourly, 2)
	current := got.Hourly[1]
	assert.Equal(t, int64(3), current.Visits)
	assert.Equal(t, int64(1), current.Blocked)

	require.Len(t, got.Geographic, 2)
	assert.Equal(t, "US", got.Geographic[0].CountryCode)
	assert.Equal(t, int64(2), got.Geographic[0].Count)
	assert.InDelta(t, 66.67, got.Geographic[0].Percentage, 0.1)

	assert.Equal(t, int64(3), got.Summary["total_visits"])
	assert.Equal(t, int64(1), got.Summary["blocked"])
}

func TestGetSystemStats_Empty(t *testing.T) {
	stats, _ := newStats(t)

	got, err := stats.GetSystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), got["total_visits"])
	assert.Equal(t, 100.0, got["success_rate"])
}

func TestHourCounter_DatabaseFallback(t *testing.T) {
	stats, db := newStats(t)

	link := testutil.CreateLink(t, db, "hc0001", "bu01", 0, "")
	seedLogs(t, db, link.ID, []models.AccessLog{{}, {}, {}})

	now := time.Now()
	assert.Equal(t, int64(3), stats.HourCounter(context.Background(), now))
	assert.Equal(t, int64(0), stats.HourCounter(context.Background(), now.AddDate(0, 0, -1)))
}

func TestAvgResponseTime(t *testing.T) {
	stats, _ := newStats(t)

	now := time.Now()
	avg, count := stats.AvgResponseTime(context.Background(), now)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	stats.RecordResponseTime(100 * time.Millisecond)
	stats.RecordResponseTime(300 * time.Millisecond)

	avg, count = stats.AvgResponseTime(context.Background(), time.Now())
	assert.Equal(t, int64(2), count)
	assert.InDelta(t, 200.0, avg, 0.01)
}
