package sysconfig

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Repository reads and writes system_config rows.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// All returns every config row as a map.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM system_config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts a single config key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

// Service serves a cached typed Snapshot, invalidated on admin writes.
type Service struct {
	repo *Repository

	mu   sync.RWMutex
	snap *Snapshot
}

// NewService creates a config service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Snapshot returns the cached snapshot, loading it on first use.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	if s.snap != nil {
		snap := *s.snap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	raw, err := s.repo.All(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load config: %w", err)
	}
	snap, err := buildSnapshot(raw)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()
	return snap, nil
}

// Update writes a key and invalidates the cache. The new value must still
// assemble into a valid snapshot; invalid values are rejected up front.
func (s *Service) Update(ctx context.Context, key, value string) error {
	raw, err := s.repo.All(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	raw[key] = value
	if _, err := buildSnapshot(raw); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
	return nil
}

// Raw exposes the underlying rows for the admin config screen.
func (s *Service) Raw(ctx context.Context) (map[string]string, error) {
	raw, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range defaults {
		if _, ok := raw[k]; !ok {
			raw[k] = v
		}
	}
	return raw, nil
}
