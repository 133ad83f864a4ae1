// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count        int
	firstAttempt time.Time
	lastAttempt  time.Time
	blocked      bool
	blockExpires time.Time
}

// MemoryStore is a mutex-guarded per-key counter for single-instance
// deployments. The read-modify-write cycle for a key runs under the lock,
// so concurrent requests for the same key cannot lose updates.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, key string, cfg Config, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &record{}
		s.records[key] = rec
	}

	if rec.blocked {
		if now.Before(rec.blockExpires) {
			return Result{
				Limit:      cfg.MaxAttempts,
				RetryAfter: rec.blockExpires.Sub(now),
				Reset:      rec.blockExpires,
			}, nil
		}
		// Block elapsed; unblock lazily and start over.
		rec.blocked = false
		rec.count = 0
	}

	if rec.count == 0 || now.Sub(rec.firstAttempt) > cfg.Window {
		rec.count = 1
		rec.firstAttempt = now
	} else {
		rec.count++
	}
	rec.lastAttempt = now

	if rec.count > cfg.MaxAttempts {
		rec.blocked = true
		rec.blockExpires = now.Add(cfg.BlockDuration)
		return Result{
			Limit:      cfg.MaxAttempts,
			RetryAfter: cfg.BlockDuration,
			Reset:      rec.blockExpires,
		}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     cfg.MaxAttempts,
		Remaining: cfg.MaxAttempts - rec.count,
		Reset:     rec.firstAttempt.Add(cfg.Window),
	}, nil
}

// Prune drops records whose last activity predates the cutoff. Blocked
// records are kept until their block has expired.
func (s *MemoryStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if rec.blocked && rec.blockExpires.After(cutoff) {
			continue
		}
		if rec.lastAttempt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
