package audit

import (
	"context"
	"sync"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
)

// MemoryStore is an in-memory Store, used in tests and as a fallback
// when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.AuditEvent
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryStore) ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditEvent
	for _, e := range s.events {
		if !matches(e, filter) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CountAuditEvents(ctx context.Context, filter models.AuditFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.events {
		if matches(e, filter) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

func (s *MemoryStore) Close() error { return nil }

func matches(e models.AuditEvent, filter models.AuditFilter) bool {
	if filter.RequestID != "" && e.RequestID != filter.RequestID {
		return false
	}
	if filter.Kind != "" && e.Kind != filter.Kind {
		return false
	}
	if filter.Before != nil && !e.CreatedAt.Before(*filter.Before) {
		return false
	}
	return true
}
