package repository

import (
	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/gorm"
)

// RetentionPerVideo is the maximum number of history rows kept per video.
const RetentionPerVideo = 100

// RankedObservation joins one history observation with its video's metadata,
// used by the ranking-at-timestamp queries.
type RankedObservation struct {
	VideoID     string
	Title       string
	ViewCount   int64
	PublishedAt string
}

// HistoryRepository is the bounded per-video time series of view counts.
type HistoryRepository interface {
	Append(videoID string, timestamp, viewCount int64) error
	FindByVideo(videoID string) ([]model.HistoryPoint, error)
	FindRecent(videoID string, limit int) ([]model.VideoHistory, error)
	DistinctTimestamps() ([]int64, error)
	FindAtTimestamp(timestamp int64) ([]RankedObservation, error)
	Count() (int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Append inserts one observation and prunes the video's history down to the
// RetentionPerVideo most recent rows. Insert and prune run in one
// transaction so a crash never leaves the bound violated. Timestamp ties are
// broken by insertion order (id), newest kept.
func (r *historyRepository) Append(videoID string, timestamp, viewCount int64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		entry := model.VideoHistory{
			VideoID:   videoID,
			Timestamp: timestamp,
			ViewCount: viewCount,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.Exec(`
			DELETE FROM video_history
			WHERE id IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY video_id ORDER BY timestamp DESC, id DESC
					) AS rn
					FROM video_history
					WHERE video_id = ?
				) ranked
				WHERE rn > ?
			)`, videoID, RetentionPerVideo).Error
	})
	if err != nil {
		logger.Error("Failed to append history entry", err, map[string]interface{}{
			"video_id": videoID,
		})
		return err
	}
	return nil
}

// FindByVideo returns a video's full retained history, oldest first
func (r *historyRepository) FindByVideo(videoID string) ([]model.HistoryPoint, error) {
	var points []model.HistoryPoint
	err := r.db.Model(&model.VideoHistory{}).
		Select("timestamp, view_count").
		Where("video_id = ?", videoID).
		Order("timestamp ASC").
		Scan(&points).Error
	if err != nil {
		logger.Error("Failed to find video history", err)
		return nil, err
	}
	return points, nil
}

// FindRecent returns a video's most recent observations, newest first
func (r *historyRepository) FindRecent(videoID string, limit int) ([]model.VideoHistory, error) {
	var entries []model.VideoHistory
	err := r.db.Where("video_id = ?", videoID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		logger.Error("Failed to find recent history", err)
		return nil, err
	}
	return entries, nil
}

// DistinctTimestamps returns every update-cycle timestamp, oldest first.
// All rows written in one cycle share a timestamp, so each value identifies
// one complete ranking snapshot.
func (r *historyRepository) DistinctTimestamps() ([]int64, error) {
	var timestamps []int64
	err := r.db.Model(&model.VideoHistory{}).
		Distinct("timestamp").
		Order("timestamp ASC").
		Pluck("timestamp", &timestamps).Error
	if err != nil {
		logger.Error("Failed to find history timestamps", err)
		return nil, err
	}
	return timestamps, nil
}

// FindAtTimestamp returns all observations at one update timestamp joined
// with video metadata, highest view count first (rank order)
func (r *historyRepository) FindAtTimestamp(timestamp int64) ([]RankedObservation, error) {
	var observations []RankedObservation
	err := r.db.Raw(`
		SELECT h.video_id, v.title, h.view_count, v.published_at
		FROM video_history h
		JOIN videos v ON h.video_id = v.video_id
		WHERE h.timestamp = ?
		ORDER BY h.view_count DESC`, timestamp).
		Scan(&observations).Error
	if err != nil {
		logger.Error("Failed to find observations at timestamp", err)
		return nil, err
	}
	return observations, nil
}

// Count returns the total number of history rows
func (r *historyRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.VideoHistory{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count history entries", err)
		return 0, err
	}
	return count, nil
}
