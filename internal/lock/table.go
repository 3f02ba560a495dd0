package lock

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableLockManager is the portable fallback: a single row carrying an owner
// token and an absolute expiry. Acquisition is optimistic and relies on the
// engine's conflict resolution for insert-or-ignore and conditional-update
// atomicity; no storage-level locking primitive is assumed.
type TableLockManager struct {
	db    *gorm.DB
	owner string
	now   func() time.Time
}

// NewTableLockManager creates the table-based backend. The owner token
// combines the hostname with a per-process random suffix so two instances on
// one host stay distinguishable.
func NewTableLockManager(db *gorm.DB) *TableLockManager {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	return &TableLockManager{
		db:    db,
		owner: fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
		now:   time.Now,
	}
}

// Owner returns this instance's owner token
func (m *TableLockManager) Owner() string {
	return m.owner
}

// TryAcquire attempts, in one transaction: insert the lock row if absent
// (fresh acquisition), otherwise update it to this owner only if the
// existing expiry is strictly in the past (reclaim from a stale or crashed
// holder). Any other state means the lock is live elsewhere.
func (m *TableLockManager) TryAcquire(ttl time.Duration) (*Handle, error) {
	now := m.now().Unix()
	expires := now + int64(ttl.Seconds())

	var acquired bool
	err := m.db.Transaction(func(tx *gorm.DB) error {
		row := model.UpdateLock{
			Key:       LockName,
			Owner:     m.owner,
			ExpiresAt: expires,
		}
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected > 0 {
			acquired = true
			return nil
		}

		update := tx.Model(&model.UpdateLock{}).
			Where("key = ? AND expires_at < ?", LockName, now).
			Updates(map[string]interface{}{"owner": m.owner, "expires_at": expires})
		if update.Error != nil {
			return update.Error
		}
		acquired = update.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	return &Handle{owner: m.owner}, nil
}

// Release deletes the lock row only while it still belongs to this owner, so
// a lock reclaimed after expiry is never released out from under its new
// holder.
func (m *TableLockManager) Release(handle *Handle) error {
	if handle == nil {
		return nil
	}
	result := m.db.Where("key = ? AND owner = ?", LockName, handle.owner).
		Delete(&model.UpdateLock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Lock was no longer owned at release, likely reclaimed after expiry", map[string]interface{}{
			"owner": handle.owner,
		})
	}
	return nil
}
