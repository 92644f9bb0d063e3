// Package redis keeps an opt-in progress event history per job. The stream
// itself stays fire-and-forget; history only exists for runs that asked for
// it and expires with the key TTL.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strogmv/forge/internal/domain"
)

const (
	historyKeyPrefix = "forge:history:"
	defaultTTL       = 24 * time.Hour
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: defaultTTL}
}

// Append pushes the event onto the job's history list and refreshes the TTL.
func (s *Store) Append(ctx context.Context, jobID string, ev domain.Progress) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode progress event: %w", err)
	}
	key := historyKeyPrefix + jobID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the stored history in emission order.
func (s *Store) List(ctx context.Context, jobID string) ([]domain.Progress, error) {
	raw, err := s.client.LRange(ctx, historyKeyPrefix+jobID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Progress, 0, len(raw))
	for _, item := range raw {
		var ev domain.Progress
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
