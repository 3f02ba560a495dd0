package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/internal/app/repository"
	"github.com/jmpark/tinydesk-backend/internal/db"
	"github.com/jmpark/tinydesk-backend/internal/lock"
	"gorm.io/gorm"
)

type trackerFixture struct {
	db          *gorm.DB
	api         *stubYouTubeAPI
	videoRepo   repository.VideoRepository
	historyRepo repository.HistoryRepository
	metaRepo    repository.MetadataRepository
	locks       lock.Manager
	tracker     *trackerService
}

func newTrackerFixture(t *testing.T, api *stubYouTubeAPI) *trackerFixture {
	t.Helper()

	database, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(database) })

	f := &trackerFixture{
		db:          database,
		api:         api,
		videoRepo:   repository.NewVideoRepository(database),
		historyRepo: repository.NewHistoryRepository(database),
		metaRepo:    repository.NewMetadataRepository(database),
		locks:       lock.NewTableLockManager(database),
	}

	ingestor := newTestIngestor(api)
	f.tracker = NewTrackerService(
		ingestor, api, f.videoRepo, f.historyRepo, f.metaRepo, f.locks, time.Hour,
	).(*trackerService)
	return f
}

func TestTrackerUpdate_PersistsCycleUnderOneTimestamp(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("vidA"), playlistItem("vidB")}},
		},
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			return &VideoStatsResponse{Items: []VideoStatsItem{
				statsItem("vidA", "Video A", "2020-01-01T00:00:00Z", "1000"),
				statsItem("vidB", "Video B", "2021-06-15T00:00:00Z", "2500"),
			}}, nil
		},
	}
	f := newTrackerFixture(t, api)
	cycleTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.tracker.now = func() time.Time { return cycleTime }

	f.tracker.Update()

	videoA, err := f.videoRepo.FindByID("vidA")
	require.NoError(t, err)
	require.NotNil(t, videoA)
	assert.Equal(t, int64(1000), videoA.CurrentViews)
	assert.Equal(t, cycleTime.Unix(), videoA.LastUpdated)

	videoB, err := f.videoRepo.FindByID("vidB")
	require.NoError(t, err)
	require.NotNil(t, videoB)
	assert.Equal(t, int64(2500), videoB.CurrentViews)

	timestamps, err := f.historyRepo.DistinctTimestamps()
	require.NoError(t, err)
	require.Len(t, timestamps, 1, "one cycle is one ranking observation")
	assert.Equal(t, cycleTime.Unix(), timestamps[0])

	lastUpdate, err := f.metaRepo.Get(model.MetaLastUpdate)
	require.NoError(t, err)
	assert.Equal(t, "1709294400", lastUpdate)

	totalVideos, err := f.metaRepo.Get(model.MetaTotalVideos)
	require.NoError(t, err)
	assert.Equal(t, "2", totalVideos)
}

func TestTrackerUpdate_SkipsWhenLockHeld(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("vidA")}},
		},
	}
	f := newTrackerFixture(t, api)

	other := lock.NewTableLockManager(f.db)
	held, err := other.TryAcquire(time.Hour)
	require.NoError(t, err)
	require.NotNil(t, held)

	f.tracker.Update()

	assert.Empty(t, f.api.pageTokens, "a denied lock means no fetch at all")
	count, err := f.videoRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, other.Release(held))
}

func TestTrackerUpdate_ReleasesLockOnFetchFailure(t *testing.T) {
	api := &stubYouTubeAPI{pageErr: errors.New("quota exceeded")}
	f := newTrackerFixture(t, api)

	f.tracker.Update()

	// The failed cycle must not leave the lock behind.
	handle, err := f.locks.TryAcquire(time.Hour)
	require.NoError(t, err)
	require.NotNil(t, handle, "lock must be free after a failed cycle")
	require.NoError(t, f.locks.Release(handle))

	count, err := f.videoRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTrackerUpdate_ReleasesLockOnSuccess(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("vidA")}},
		},
	}
	f := newTrackerFixture(t, api)

	f.tracker.Update()

	handle, err := f.locks.TryAcquire(time.Hour)
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.NoError(t, f.locks.Release(handle))
}

func TestUpdateVideo_SavesSnapshotAndHistory(t *testing.T) {
	api := &stubYouTubeAPI{
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			return &VideoStatsResponse{Items: []VideoStatsItem{
				statsItem("vidA", "Video A", "2020-01-01T00:00:00Z", "42"),
			}}, nil
		},
	}
	f := newTrackerFixture(t, api)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.tracker.now = func() time.Time { return fixed }

	video, err := f.tracker.UpdateVideo("vidA")
	require.NoError(t, err)
	assert.Equal(t, "vidA", video.VideoID)
	assert.Equal(t, int64(42), video.CurrentViews)
	assert.Equal(t, fixed.Unix(), video.LastUpdated)

	history, err := f.historyRepo.FindByVideo("vidA")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(42), history[0].ViewCount)
}

func TestUpdateVideo_NotFound(t *testing.T) {
	api := &stubYouTubeAPI{
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			return &VideoStatsResponse{}, nil
		},
	}
	f := newTrackerFixture(t, api)

	_, err := f.tracker.UpdateVideo("gone")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestUpdateVideo_ExternalFailure(t *testing.T) {
	api := &stubYouTubeAPI{
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			return nil, errors.New("503")
		},
	}
	f := newTrackerFixture(t, api)

	_, err := f.tracker.UpdateVideo("vidA")
	assert.ErrorIs(t, err, ErrExternalAPIFailed)
}
