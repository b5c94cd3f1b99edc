package pipeline

import (
	"context"

	"github.com/redis/go-redis/v9"

	"eventpulse/pkg/errors"
)

const cursorKeyPrefix = "pipeline:cursor:"

// CursorStore persists per-pipeline resume positions between worker runs.
// A cursor marks the last item fully handled; sweeps restart strictly after
// it, and a cleared cursor means the next run starts a fresh sweep.
type CursorStore interface {
	Load(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name, value string) error
	Clear(ctx context.Context, name string) error
}

// Compile-time check
var _ CursorStore = (*RedisCursorStore)(nil)

// RedisCursorStore keeps cursors in Redis without expiry; a crashed run
// resumes exactly where its last completed batch left off
type RedisCursorStore struct {
	rdb *redis.Client
}

// NewRedisCursorStore creates a Redis-backed cursor store
func NewRedisCursorStore(rdb *redis.Client) *RedisCursorStore {
	return &RedisCursorStore{rdb: rdb}
}

// Load returns the saved cursor, or empty when none is set
func (s *RedisCursorStore) Load(ctx context.Context, name string) (string, error) {
	val, err := s.rdb.Get(ctx, cursorKeyPrefix+name).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "load cursor %s", name)
	}
	return val, nil
}

// Save checkpoints the cursor
func (s *RedisCursorStore) Save(ctx context.Context, name, value string) error {
	if err := s.rdb.Set(ctx, cursorKeyPrefix+name, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "save cursor %s", name)
	}
	return nil
}

// Clear removes the cursor so the next sweep starts from the beginning
func (s *RedisCursorStore) Clear(ctx context.Context, name string) error {
	if err := s.rdb.Del(ctx, cursorKeyPrefix+name).Err(); err != nil {
		return errors.Wrapf(err, "clear cursor %s", name)
	}
	return nil
}
