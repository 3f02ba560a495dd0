package repository

import (
	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VideoRepository persists the latest snapshot per tracked video.
type VideoRepository interface {
	Save(video *model.Video) error
	FindByID(videoID string) (*model.Video, error)
	FindTop(limit int) ([]model.Video, error)
	FindAllByViews() ([]model.Video, error)
	Count() (int64, error)
}

type videoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a video repository
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

// Save upserts the latest video snapshot. An empty incoming published_at
// never erases a stored value: the playlist API omits it for some entries
// while the value itself is immutable once known.
func (r *videoRepository) Save(video *model.Video) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"title":         video.Title,
			"current_views": video.CurrentViews,
			"last_updated":  video.LastUpdated,
			"published_at": gorm.Expr(
				"CASE WHEN excluded.published_at <> '' THEN excluded.published_at ELSE videos.published_at END",
			),
		}),
	}).Create(video).Error
	if err != nil {
		logger.Error("Failed to save video", err, map[string]interface{}{
			"video_id": video.VideoID,
		})
		return err
	}
	return nil
}

// FindByID returns one video, or nil when it is not tracked
func (r *videoRepository) FindByID(videoID string) (*model.Video, error) {
	var video model.Video
	if err := r.db.Where("video_id = ?", videoID).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.Error("Failed to find video", err)
		return nil, err
	}
	return &video, nil
}

// FindTop returns up to limit videos ordered by current views descending
func (r *videoRepository) FindTop(limit int) ([]model.Video, error) {
	var videos []model.Video
	if err := r.db.Order("current_views DESC").Limit(limit).Find(&videos).Error; err != nil {
		logger.Error("Failed to find top videos", err)
		return nil, err
	}
	return videos, nil
}

// FindAllByViews returns every tracked video ordered by current views descending
func (r *videoRepository) FindAllByViews() ([]model.Video, error) {
	var videos []model.Video
	if err := r.db.Order("current_views DESC").Find(&videos).Error; err != nil {
		logger.Error("Failed to find videos", err)
		return nil, err
	}
	return videos, nil
}

// Count returns the number of tracked videos
func (r *videoRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Video{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count videos", err)
		return 0, err
	}
	return count, nil
}
