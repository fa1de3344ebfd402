package domain

import (
	"context"
	"io"
	"time"
)

// ActionLedger persists action records and run summaries outside the state
// file for later audit.
type ActionLedger interface {
	RecordAction(ctx context.Context, strategyHash, mode string, action ActionRecord) error
	RecordRun(ctx context.Context, summary RunSummary) error
	ListActions(ctx context.Context, strategyHash string, limit int) ([]ActionRecord, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Refresh resets the TTL. It returns ErrLockLost once the lock has
	// expired or changed hands.
	Refresh(ctx context.Context, ttl time.Duration) error
	// Release is idempotent.
	Release()
}

// EventStream appends action events to a durable, ordered stream.
type EventStream interface {
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
