package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/cart"
	"storefront/internal/infra"
)

const keyPrefix = "cart:session:"

// CartStore keeps session carts in Redis as JSON. Every save refreshes the TTL.
type CartStore struct {
	rdb infra.CacheClient
	ttl time.Duration
}

func NewCartStore(rdb infra.CacheClient, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func (s *CartStore) Load(ctx context.Context, sessionID string) ([]cart.Line, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var lines []cart.Line
	if err := json.Unmarshal(b, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return lines, nil
}

func (s *CartStore) Save(ctx context.Context, sessionID string, lines []cart.Line) error {
	if len(lines) == 0 {
		return s.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ cart.Store = (*CartStore)(nil)
