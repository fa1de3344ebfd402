package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's token,
// so one owner can never release another owner's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua resets the TTL only while the caller's token still owns the key.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// OwnerLock implements domain.LockManager with SET NX PX and Lua-based
// conditional refresh and unlock. The control loop takes one per strategy
// hash so two processes never drive the same state file.
type OwnerLock struct {
	rdb       *redis.Client
	unlockSc  *redis.Script
	refreshSc *redis.Script
	logger    *slog.Logger
}

// NewOwnerLock creates an OwnerLock backed by the given Client.
func NewOwnerLock(c *Client, logger *slog.Logger) *OwnerLock {
	return &OwnerLock{
		rdb:       c.Underlying(),
		unlockSc:  redis.NewScript(unlockLua),
		refreshSc: redis.NewScript(refreshLua),
		logger:    logger.With(slog.String("component", "owner_lock")),
	}
}

// Acquire takes the lock for key with the given TTL. A held lock yields
// domain.ErrLockHeld.
func (l *OwnerLock) Acquire(ctx context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: %s: %w", key, domain.ErrLockHeld)
	}
	return &ownerLease{lock: l, key: key, token: token}, nil
}

type ownerLease struct {
	lock     *OwnerLock
	key      string
	token    string
	released bool
}

// Refresh extends the lease to ttl from now.
func (o *ownerLease) Refresh(ctx context.Context, ttl time.Duration) error {
	if o.released {
		return fmt.Errorf("redis: refresh %s: %w", o.key, domain.ErrLockLost)
	}
	n, err := o.lock.refreshSc.Run(ctx, o.lock.rdb, []string{o.key}, o.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis: refresh %s: %w", o.key, err)
	}
	if n == 0 {
		return fmt.Errorf("redis: refresh %s: %w", o.key, domain.ErrLockLost)
	}
	return nil
}

// Release deletes the key if this lease still owns it.
func (o *ownerLease) Release() {
	if o.released {
		return
	}
	o.released = true

	// The caller's context may already be cancelled by a stop signal.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.lock.unlockSc.Run(ctx, o.lock.rdb, []string{o.key}, o.token).Err(); err != nil {
		o.lock.logger.Warn("lock release failed",
			slog.String("key", o.key),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface checks.
var (
	_ domain.LockManager = (*OwnerLock)(nil)
	_ domain.Lease       = (*ownerLease)(nil)
)
