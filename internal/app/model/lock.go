package model

// UpdateLock is the single row backing the table-based distributed lock.
// At most one live (non-expired) holder exists per key; ownership is
// advisory and relies on the insert/conditional-update race in the lock
// manager, not on storage-level exclusivity.
type UpdateLock struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Owner     string `gorm:"not null"`
	ExpiresAt int64  `gorm:"not null"` // epoch seconds
}

func (UpdateLock) TableName() string {
	return "update_locks"
}
