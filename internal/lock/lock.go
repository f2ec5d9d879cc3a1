// Package lock provides the per-campaign dispatch lock. Redis is preferred
// when configured; otherwise PostgreSQL advisory locks are used.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is a single lock instance. It is not safe for concurrent use;
// take a new instance per critical section.
type DistLock interface {
	// Acquire tries to take the lock without blocking. It returns false
	// when someone else holds it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if we still own it.
	Release(ctx context.Context) error
}

// Extender is a DistLock whose lease runs out unless it is renewed
type Extender interface {
	DistLock
	Extend(ctx context.Context) (bool, error)
	TTL() time.Duration
}

// KeepAlive extends l every third of its TTL until the returned stop func
// is called. onError sees every failed renewal; renewal ends for good once
// the lease is lost (ErrLockLost).
func KeepAlive(ctx context.Context, l Extender, onError func(error)) (stop func()) {
	interval := l.TTL() / 3
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			ok, err := l.Extend(ctx)
			if ctx.Err() != nil {
				return
			}
			if err == nil && ok {
				continue
			}
			if err == nil {
				err = ErrLockLost
			}
			if onError != nil {
				onError(err)
			}
			if errors.Is(err, ErrLockLost) {
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Locker hands out locks keyed by name
type Locker interface {
	NewLock(key string) DistLock
}

// New returns a Redis-backed Locker when redisClient is non-nil and a
// PostgreSQL advisory Locker otherwise.
func New(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Locker {
	if redisClient != nil {
		return &redisLocker{client: redisClient, ttl: ttl}
	}
	return &pgLocker{db: db}
}

// Backend names the lock implementation, for logs
func Backend(l Locker) string {
	switch l.(type) {
	case *redisLocker:
		return "redis"
	case *pgLocker:
		return "postgres"
	default:
		return "custom"
	}
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func (l *redisLocker) NewLock(key string) DistLock {
	return NewRedisLock(l.client, key, l.ttl)
}

type pgLocker struct {
	db *sql.DB
}

func (l *pgLocker) NewLock(key string) DistLock {
	return NewPGAdvisoryLock(l.db, key)
}

// CampaignKey is the lock key guarding dispatch of one campaign
func CampaignKey(campaignID string) string {
	return "campaign-dispatch:" + campaignID
}
