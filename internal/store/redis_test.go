package store

import (
	"context"
	"testing"
)

func TestNewRedisPoolDefaults(t *testing.T) {
	r := NewRedis("localhost:6379", 0)
	if got := r.Client.Options().PoolSize; got != 10 {
		t.Errorf("PoolSize = %d, want default 10", got)
	}

	r = NewRedis("localhost:6379", 25)
	if got := r.Client.Options().PoolSize; got != 25 {
		t.Errorf("PoolSize = %d, want 25", got)
	}
}

func TestRedisNilSafety(t *testing.T) {
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Error("nil Redis reported healthy")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}
