package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

// ProgressStore keeps the last published run progress per queue.
type ProgressStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProgressStore(rdb *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{rdb: rdb, ttl: ttl}
}

func progressKey(queueID string) string {
	return "progress:" + queueID
}

func (s *ProgressStore) Publish(ctx context.Context, queueID string, p schemas.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, progressKey(queueID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set progress %s: %w", queueID, err)
	}
	return nil
}

// Get returns errdefs.ErrNotFound when no run has published for the queue.
func (s *ProgressStore) Get(ctx context.Context, queueID string) (schemas.Progress, error) {
	var p schemas.Progress
	val, err := s.rdb.Get(ctx, progressKey(queueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, fmt.Errorf("progress for queue %s: %w", queueID, errdefs.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("get progress %s: %w", queueID, err)
	}
	if err := json.Unmarshal(val, &p); err != nil {
		return p, fmt.Errorf("decode progress %s: %w", queueID, err)
	}
	return p, nil
}
