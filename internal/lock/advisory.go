package lock

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"time"

	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"gorm.io/gorm"
)

// AdvisoryLockManager uses PostgreSQL session advisory locks. The lock is
// scoped to a dedicated connection, so a crashed holder releases it the
// moment its connection dies; the TTL argument is ignored.
type AdvisoryLockManager struct {
	db  *sql.DB
	key int64
}

// NewAdvisoryLockManager creates the advisory-lock backend
func NewAdvisoryLockManager(db *gorm.DB) (*AdvisoryLockManager, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &AdvisoryLockManager{
		db:  sqlDB,
		key: advisoryLockKey(LockName),
	}, nil
}

// advisoryLockKey derives a stable signed 64-bit key from the lock name:
// the first 8 bytes of its SHA-256 digest, big-endian.
func advisoryLockKey(name string) int64 {
	digest := sha256.Sum256([]byte(name))
	return int64(binary.BigEndian.Uint64(digest[:8]))
}

// TryAcquire requests pg_try_advisory_lock on a dedicated connection. On
// success the connection is kept open inside the handle; on denial it is
// closed immediately.
func (m *AdvisoryLockManager) TryAcquire(_ time.Duration) (*Handle, error) {
	ctx := context.Background()
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", m.key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, err
	}
	if !acquired {
		conn.Close()
		return nil, nil
	}

	return &Handle{conn: conn}, nil
}

// Release unlocks and closes the holding connection. Unlock failures are
// logged but not propagated; closing the connection releases the lock
// server-side regardless.
func (m *AdvisoryLockManager) Release(handle *Handle) error {
	if handle == nil || handle.conn == nil {
		return nil
	}
	ctx := context.Background()
	if _, err := handle.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", m.key); err != nil {
		logger.Warn("Advisory unlock failed, relying on connection close", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := handle.conn.Close(); err != nil {
		logger.Warn("Failed to close lock connection", map[string]interface{}{
			"error": err.Error(),
		})
	}
	handle.conn = nil
	return nil
}
