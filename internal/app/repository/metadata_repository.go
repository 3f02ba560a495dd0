package repository

import (
	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataRepository is the key/value store for tracker bookkeeping.
type MetadataRepository interface {
	Set(key, value string) error
	Get(key string) (string, error)
	GetAll() (map[string]string, error)
}

type metadataRepository struct {
	db *gorm.DB
}

// NewMetadataRepository creates a metadata repository
func NewMetadataRepository(db *gorm.DB) MetadataRepository {
	return &metadataRepository{db: db}
}

// Set upserts one key, last write wins
func (r *metadataRepository) Set(key, value string) error {
	entry := model.Metadata{Key: key, Value: value}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
	if err != nil {
		logger.Error("Failed to set metadata", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return nil
}

// Get returns one value, or "" when the key was never written
func (r *metadataRepository) Get(key string) (string, error) {
	var entry model.Metadata
	if err := r.db.Where("key = ?", key).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		logger.Error("Failed to get metadata", err)
		return "", err
	}
	return entry.Value, nil
}

// GetAll returns every metadata pair
func (r *metadataRepository) GetAll() (map[string]string, error) {
	var entries []model.Metadata
	if err := r.db.Find(&entries).Error; err != nil {
		logger.Error("Failed to get all metadata", err)
		return nil, err
	}
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.Key] = e.Value
	}
	return result, nil
}
