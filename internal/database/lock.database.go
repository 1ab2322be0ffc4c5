package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	SCHEDULE_LOCK_PREFIX = "schedule_generation"
	SCHEDULE_LOCK_TTL    = 5 * time.Minute
)

// AcquireScheduleLock takes a per-schedule advisory lock so overlapping
// generation runs never race on the same schedule. Returns false when another
// run holds the lock. The TTL bounds the damage of a crashed holder.
func (s *DB) AcquireScheduleLock(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	if s.Cache.Locks == nil {
		return true, nil
	}

	key := fmt.Sprintf("%s:%s", SCHEDULE_LOCK_PREFIX, scheduleID)
	cmd := s.Cache.Locks.B().Set().Key(key).Value("1").Nx().Px(SCHEDULE_LOCK_TTL).Build()

	result := s.Cache.Locks.Do(ctx, cmd)
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire schedule lock %s: %w", scheduleID, err)
	}

	return true, nil
}

// ReleaseScheduleLock drops the advisory lock. Failures are returned so the
// caller can log them; the TTL expires the lock regardless.
func (s *DB) ReleaseScheduleLock(ctx context.Context, scheduleID uuid.UUID) error {
	if s.Cache.Locks == nil {
		return nil
	}

	key := fmt.Sprintf("%s:%s", SCHEDULE_LOCK_PREFIX, scheduleID)
	if err := s.Cache.Locks.Do(ctx, s.Cache.Locks.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to release schedule lock %s: %w", scheduleID, err)
	}

	return nil
}
