package repository

import (
	"context"
	"sync"
	"time"

	"barbershop/internal/models"
)

type MemorySessionRepository struct {
	mu         sync.Mutex
	sessions   map[string]memoryEntry
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	state     *models.SessionState
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:   make(map[string]memoryEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(_ context.Context, key string) (*models.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.sessions, key)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemorySessionRepository) SetSession(_ context.Context, key string, state *models.SessionState, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	entry := memoryEntry{state: state}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.sessions[key] = entry
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) ClearSession(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, subject string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[subject]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[subject] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
