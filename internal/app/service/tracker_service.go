package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/internal/app/repository"
	"github.com/jmpark/tinydesk-backend/internal/lock"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
)

var (
	ErrVideoNotFound     = errors.New("video not found")
	ErrExternalAPIFailed = errors.New("failed to fetch data from the YouTube API")
)

// TrackerService coordinates one full update cycle: lock acquisition,
// catalog ingestion, persistence and metadata bookkeeping. All triggers
// (cron loop, scheduled jobs, manual HTTP) converge on Update, and the lock
// manager is the sole mechanism keeping cycles mutually exclusive.
type TrackerService interface {
	// Update runs one cycle. It never returns an error: lock denial is a
	// normal skip, and fetch/persist failures are logged here and retried by
	// whatever trigger fires next.
	Update()
	// UpdateVideo fetches and saves a single video on demand.
	UpdateVideo(videoID string) (*model.Video, error)
}

type trackerService struct {
	ingestor    *CatalogIngestor
	api         YouTubeAPI
	videoRepo   repository.VideoRepository
	historyRepo repository.HistoryRepository
	metaRepo    repository.MetadataRepository
	locks       lock.Manager
	lockTTL     time.Duration
	now         func() time.Time
}

// NewTrackerService creates the update coordinator
func NewTrackerService(
	ingestor *CatalogIngestor,
	api YouTubeAPI,
	videoRepo repository.VideoRepository,
	historyRepo repository.HistoryRepository,
	metaRepo repository.MetadataRepository,
	locks lock.Manager,
	lockTTL time.Duration,
) TrackerService {
	return &trackerService{
		ingestor:    ingestor,
		api:         api,
		videoRepo:   videoRepo,
		historyRepo: historyRepo,
		metaRepo:    metaRepo,
		locks:       locks,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
}

func (s *trackerService) Update() {
	logger.Info("Starting update cycle")

	handle, err := s.locks.TryAcquire(s.lockTTL)
	if err != nil {
		logger.Error("Failed to acquire update lock", err)
		return
	}
	if handle == nil {
		logger.Info("Skipping update: lock not acquired, another instance is updating")
		return
	}
	defer func() {
		if err := s.locks.Release(handle); err != nil {
			// A lingering row self-expires via TTL, so this never blocks the
			// next cycle for good.
			logger.Error("Failed to release update lock", err)
		}
	}()

	videos, err := s.ingestor.FetchAll()
	if err != nil {
		logger.Error("Update cycle aborted: fetch failed", err)
		return
	}

	if err := s.persist(videos); err != nil {
		logger.Error("Update cycle aborted: persist failed", err)
		return
	}

	logger.Info("Update cycle completed successfully", map[string]interface{}{
		"videos": len(videos),
	})
}

// persist writes every snapshot under one shared timestamp so a whole cycle
// forms a single ranking observation, then records the bookkeeping metadata.
func (s *trackerService) persist(videos []model.VideoSnapshot) error {
	timestamp := s.now().Unix()

	for _, v := range videos {
		video := model.Video{
			VideoID:      v.VideoID,
			Title:        v.Title,
			CurrentViews: v.ViewCount,
			LastUpdated:  timestamp,
			PublishedAt:  v.PublishedAt,
		}
		if err := s.videoRepo.Save(&video); err != nil {
			return err
		}
		if err := s.historyRepo.Append(v.VideoID, timestamp, v.ViewCount); err != nil {
			return err
		}
	}

	if err := s.metaRepo.Set(model.MetaLastUpdate, strconv.FormatInt(timestamp, 10)); err != nil {
		return err
	}
	return s.metaRepo.Set(model.MetaTotalVideos, strconv.Itoa(len(videos)))
}

// UpdateVideo fetches current statistics for one video and saves a snapshot
// plus a history observation for it alone.
func (s *trackerService) UpdateVideo(videoID string) (*model.Video, error) {
	stats, err := s.api.GetVideoStatistics([]string{videoID})
	if err != nil {
		logger.Error("Failed to fetch video statistics", err, map[string]interface{}{
			"video_id": videoID,
		})
		return nil, ErrExternalAPIFailed
	}
	if len(stats.Items) == 0 {
		return nil, ErrVideoNotFound
	}

	item := stats.Items[0]
	timestamp := s.now().Unix()
	video := model.Video{
		VideoID:      item.ID,
		Title:        item.Snippet.Title,
		CurrentViews: item.Views(),
		LastUpdated:  timestamp,
		PublishedAt:  item.Snippet.PublishedAt,
	}
	if err := s.videoRepo.Save(&video); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Append(video.VideoID, timestamp, video.CurrentViews); err != nil {
		return nil, err
	}
	return &video, nil
}
