// Package lock provides the distributed mutual-exclusion primitive that
// keeps concurrent update cycles from running at once, whether they come
// from two triggers in one process or from separate instances sharing the
// same database.
package lock

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// LockName identifies the single update lock shared by all instances.
const LockName = "tinydesk_update_lock"

// Handle represents a held lock. A nil Handle from TryAcquire means the lock
// was denied, which is the normal outcome while another instance is
// mid-update.
type Handle struct {
	owner string
	conn  *sql.Conn // advisory backend only; the lock lives as long as this connection
}

// Owner returns the owner token recorded for this acquisition. Empty for the
// advisory backend, which ties ownership to the connection instead.
func (h *Handle) Owner() string {
	if h == nil {
		return ""
	}
	return h.owner
}

// Manager acquires and releases the update lock.
type Manager interface {
	// TryAcquire attempts a non-blocking acquisition. (nil, nil) means the
	// lock is currently held elsewhere.
	TryAcquire(ttl time.Duration) (*Handle, error)
	// Release gives the lock back. Unlock failures on the advisory backend
	// are logged and swallowed: a lingering table lock self-expires via TTL
	// and an advisory lock dies with its connection.
	Release(handle *Handle) error
}

// NewManager selects the lock backend once at startup. Engines with native
// advisory locking get the connection-scoped backend; everything else gets
// the portable TTL row.
func NewManager(db *gorm.DB, hasAdvisoryLocks bool) (Manager, error) {
	if hasAdvisoryLocks {
		return NewAdvisoryLockManager(db)
	}
	return NewTableLockManager(db), nil
}
