package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/internal/app/repository"
	"github.com/jmpark/tinydesk-backend/internal/db"
)

type videoFixture struct {
	videoRepo   repository.VideoRepository
	historyRepo repository.HistoryRepository
	metaRepo    repository.MetadataRepository
	svc         *videoService
}

func newVideoFixture(t *testing.T) *videoFixture {
	t.Helper()

	database, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(database) })

	f := &videoFixture{
		videoRepo:   repository.NewVideoRepository(database),
		historyRepo: repository.NewHistoryRepository(database),
		metaRepo:    repository.NewMetadataRepository(database),
	}
	f.svc = NewVideoService(f.videoRepo, f.historyRepo, f.metaRepo).(*videoService)
	return f
}

func (f *videoFixture) seedVideo(t *testing.T, videoID, title string, views, lastUpdated int64, publishedAt string) {
	t.Helper()
	require.NoError(t, f.videoRepo.Save(&model.Video{
		VideoID:      videoID,
		Title:        title,
		CurrentViews: views,
		LastUpdated:  lastUpdated,
		PublishedAt:  publishedAt,
	}))
}

func (f *videoFixture) seedHistory(t *testing.T, videoID string, timestamp, views int64) {
	t.Helper()
	require.NoError(t, f.historyRepo.Append(videoID, timestamp, views))
}

func TestGetTopVideos_RanksByCurrentViews(t *testing.T) {
	f := newVideoFixture(t)
	f.seedVideo(t, "low", "Low", 100, 1000, "")
	f.seedVideo(t, "high", "High", 200, 1000, "")
	f.seedVideo(t, "mid", "Mid", 150, 1000, "")

	ranked, err := f.svc.GetTopVideos(2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "high", ranked[0].VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=high", ranked[0].URL)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, "mid", ranked[1].VideoID)
}

func TestGetTopVideos_EmptyDatabase(t *testing.T) {
	f := newVideoFixture(t)

	ranked, err := f.svc.GetTopVideos(100)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestGetMetadata_BeforeFirstUpdate(t *testing.T) {
	f := newVideoFixture(t)

	meta, err := f.svc.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, int64(0), meta.LastUpdate)
	assert.Equal(t, int64(0), meta.TotalVideos)
}

func TestGetMetadata_AfterUpdate(t *testing.T) {
	f := newVideoFixture(t)
	require.NoError(t, f.metaRepo.Set(model.MetaLastUpdate, "1709294400"))
	require.NoError(t, f.metaRepo.Set(model.MetaTotalVideos, "310"))

	meta, err := f.svc.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, int64(1709294400), meta.LastUpdate)
	assert.Equal(t, int64(310), meta.TotalVideos)
}

func TestGetStats_CountsTables(t *testing.T) {
	f := newVideoFixture(t)
	f.seedVideo(t, "a", "A", 10, 1000, "")
	f.seedHistory(t, "a", 1000, 10)
	f.seedHistory(t, "a", 2000, 20)

	stats, err := f.svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVideos)
	assert.Equal(t, int64(2), stats.TotalHistoryEntries)
}

func TestGetRankingHistory_TracksRankChanges(t *testing.T) {
	f := newVideoFixture(t)
	f.seedVideo(t, "a", "Video A", 300, 2000, "")
	f.seedVideo(t, "b", "Video B", 250, 2000, "")

	// Cycle 1: a leads. Cycle 2: b overtakes.
	f.seedHistory(t, "a", 1000, 200)
	f.seedHistory(t, "b", 1000, 100)
	f.seedHistory(t, "a", 2000, 210)
	f.seedHistory(t, "b", 2000, 250)

	history, err := f.svc.GetRankingHistory()
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 2000}, history.Timestamps)

	b := history.Evolution["b"]
	require.NotNil(t, b)
	assert.Equal(t, 1, b.CurrentRank)
	assert.Equal(t, 2, b.PreviousRank)
	assert.Equal(t, 1, b.RankChange, "climbing one place is +1")

	a := history.Evolution["a"]
	require.NotNil(t, a)
	assert.Equal(t, 2, a.CurrentRank)
	assert.Equal(t, -1, a.RankChange)

	require.NotEmpty(t, history.TopMovers)
	assert.Equal(t, "b", history.TopMovers[0].VideoID)
	require.NotEmpty(t, history.BiggestFallers)
	assert.Equal(t, "a", history.BiggestFallers[0].VideoID)
}

func TestGetRankingHistory_EmptyDatabase(t *testing.T) {
	f := newVideoFixture(t)

	history, err := f.svc.GetRankingHistory()
	require.NoError(t, err)
	assert.Empty(t, history.Timestamps)
	assert.Empty(t, history.Evolution)
}

func TestGetAnalytics_ComputesGrowthRates(t *testing.T) {
	f := newVideoFixture(t)
	published := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	f.seedVideo(t, "a", "Video A", 4600, 2000, published.Format(time.RFC3339))

	// Two observations exactly one hour apart, 1000 views gained.
	f.seedHistory(t, "a", 1000, 3600)
	f.seedHistory(t, "a", 4600, 4600)

	// Pin now to one day after publication: 4600 views / 24h.
	f.svc.now = func() time.Time { return published.Add(24 * time.Hour) }

	report, err := f.svc.GetAnalytics()
	require.NoError(t, err)
	require.Len(t, report.Trending, 1)

	entry := report.Trending[0]
	assert.Equal(t, int64(1000), entry.ViewsChange)
	assert.Equal(t, 1000.0, entry.ViewsPerHour)
	assert.Equal(t, 1.0, entry.HoursSinceLastUpdate)
	assert.InDelta(t, 191.67, entry.LifetimeViewsPerHour, 0.001)

	assert.Equal(t, 1, report.Statistics.TotalVideos)
	assert.Equal(t, int64(4600), report.Statistics.TotalViews)
	assert.Equal(t, 4600.0, report.Statistics.AverageViews)
	assert.Equal(t, 1000.0, report.Statistics.AverageViewsPerHour)
}

func TestGetAnalytics_SingleObservationHasNoShortTermRate(t *testing.T) {
	f := newVideoFixture(t)
	f.seedVideo(t, "a", "Video A", 100, 1000, "")
	f.seedHistory(t, "a", 1000, 100)

	report, err := f.svc.GetAnalytics()
	require.NoError(t, err)
	require.Len(t, report.Trending, 1)
	assert.Zero(t, report.Trending[0].ViewsPerHour)
	assert.Zero(t, report.Trending[0].LifetimeViewsPerHour, "no published date, no lifetime rate")
}

func TestGetAnalytics_EmptyDatabase(t *testing.T) {
	f := newVideoFixture(t)

	report, err := f.svc.GetAnalytics()
	require.NoError(t, err)
	assert.Empty(t, report.Trending)
	assert.Empty(t, report.TopPerformers)
	assert.Zero(t, report.Statistics.TotalVideos)
	assert.Zero(t, report.Statistics.AverageViews)
}

func TestExportRankings_WritesHeaderAndRows(t *testing.T) {
	f := newVideoFixture(t)
	f.seedVideo(t, "a", "Video A", 200, 1000, "2020-01-01T00:00:00Z")
	f.seedVideo(t, "b", "Video B", 100, 1000, "")

	file, err := f.svc.ExportRankings()
	require.NoError(t, err)
	defer file.Close()

	title, err := file.GetCellValue("Rankings", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Rank", title)

	first, err := file.GetCellValue("Rankings", "B2")
	require.NoError(t, err)
	assert.Equal(t, "a", first, "highest views exported first")

	second, err := file.GetCellValue("Rankings", "B3")
	require.NoError(t, err)
	assert.Equal(t, "b", second)
}
