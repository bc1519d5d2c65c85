package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisApprovals stores pending approvals in Redis with a TTL, so an
// unanswered request expires on its own and survives a scanner page reload.
type RedisApprovals struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisApprovals creates the store; ttl bounds how long an approval may
// stay pending.
func NewRedisApprovals(client *redis.Client, ttl time.Duration) *RedisApprovals {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisApprovals{client: client, ttl: ttl}
}

func approvalKey(token string) string { return "canteen:approval:" + token }

// Put stores a pending approval under its token.
func (s *RedisApprovals) Put(ctx context.Context, p Pending) error {
	if p.Token == "" {
		return errors.New("approval token required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, approvalKey(p.Token), data, s.ttl).Err()
}

// Take consumes a pending approval exactly once; expired or unknown tokens
// return nil.
func (s *RedisApprovals) Take(ctx context.Context, token string) (*Pending, error) {
	data, err := s.client.GetDel(ctx, approvalKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
