// Package audit implements the sink: a fire-and-forget submission
// path batched per request, a pluggable persistence store with a
// Create/List/Count/Delete contract, and a retention sweep that
// deletes events past a configurable cutoff on a
// start-immediately-then-ticker loop.
package audit

import (
	"context"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
)

// Store persists and queries audit events.
type Store interface {
	CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error)
	CountAuditEvents(ctx context.Context, filter models.AuditFilter) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// ErrNotFound is a typed not-found error for a single entity lookup.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
