package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/pkg/models"
)

// PostgresStore implements Store over a pgxpool connection pool,
// running a create-table-if-absent migration against the single
// append-mostly audit_events table it needs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connURL and ensures the audit_events
// table exists.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}

	log.Info().Msg("audit postgres store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id              TEXT PRIMARY KEY,
			request_id      TEXT NOT NULL,
			kind            TEXT NOT NULL,
			token           TEXT NOT NULL,
			original_length INT  NOT NULL,
			action          TEXT NOT NULL,
			position_start  INT,
			position_end    INT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_audit_events_request_id ON audit_events (request_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_kind ON audit_events (kind);
		CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events (created_at);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	const q = `
		INSERT INTO audit_events (id, request_id, kind, token, original_length, action, position_start, position_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, q, event.ID, event.RequestID, event.Kind, event.Token,
		event.OriginalLength, event.Action, event.PositionStart, event.PositionEnd, event.CreatedAt)
	return err
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, request_id, kind, token, original_length, action, position_start, position_end, created_at
		FROM audit_events WHERE 1=1`)
	args := []any{}
	sb.WriteString(whereClauses(filter, &args))
	sb.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Kind, &e.Token, &e.OriginalLength,
			&e.Action, &e.PositionStart, &e.PositionEnd, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAuditEvents(ctx context.Context, filter models.AuditFilter) (int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM audit_events WHERE 1=1")
	args := []any{}
	sb.WriteString(whereClauses(filter, &args))

	var count int64
	err := s.pool.QueryRow(ctx, sb.String(), args...).Scan(&count)
	return count, err
}

func (s *PostgresStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: delete before cutoff: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// whereClauses appends filter predicates to args and returns the SQL
// fragment, numbering placeholders from len(args)+1.
func whereClauses(filter models.AuditFilter, args *[]any) string {
	var sb strings.Builder
	if filter.RequestID != "" {
		*args = append(*args, filter.RequestID)
		fmt.Fprintf(&sb, " AND request_id = $%d", len(*args))
	}
	if filter.Kind != "" {
		*args = append(*args, filter.Kind)
		fmt.Fprintf(&sb, " AND kind = $%d", len(*args))
	}
	if filter.Before != nil {
		*args = append(*args, *filter.Before)
		fmt.Fprintf(&sb, " AND created_at < $%d", len(*args))
	}
	return sb.String()
}
