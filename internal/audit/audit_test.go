package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentoven/llmguardian/internal/audit"
	"github.com/agentoven/llmguardian/pkg/models"
)

func TestSink_SubmitThenClose_PersistsAllRecords(t *testing.T) {
	store := audit.NewMemoryStore()
	sink := audit.NewSink(store, 2, 16)

	sink.Submit(audit.Submission{
		RequestID: "req-1",
		Detailed:  false,
		Records: []models.SVDetectionRecord{
			{Kind: "email", Token: "[EMAIL_TOKEN_1]", OriginalLength: 16, DetectedAt: time.Now()},
			{Kind: "phone", Token: "[PHONE_TOKEN_2]", OriginalLength: 12, DetectedAt: time.Now()},
		},
	})
	sink.Close()

	events, err := store.ListAuditEvents(context.Background(), models.AuditFilter{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 persisted events, got %d", len(events))
	}
	for _, e := range events {
		if e.PositionStart != nil || e.PositionEnd != nil {
			t.Errorf("expected no position fields when Detailed=false, got start=%v end=%v", e.PositionStart, e.PositionEnd)
		}
		if e.Action != "REDACTED" {
			t.Errorf("expected action REDACTED, got %q", e.Action)
		}
	}
}

func TestSink_DetailedMode_PersistsPositions(t *testing.T) {
	store := audit.NewMemoryStore()
	sink := audit.NewSink(store, 1, 16)

	sink.Submit(audit.Submission{
		RequestID: "req-2",
		Detailed:  true,
		Records: []models.SVDetectionRecord{
			{Kind: "ssn", Token: "[SSN_TOKEN_1]", OriginalLength: 11, DetectedAt: time.Now(), Start: 5, End: 16, HasPosition: true},
		},
	})
	sink.Close()

	events, _ := store.ListAuditEvents(context.Background(), models.AuditFilter{RequestID: "req-2"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].PositionStart == nil || *events[0].PositionStart != 5 {
		t.Errorf("expected position start 5, got %v", events[0].PositionStart)
	}
	if events[0].PositionEnd == nil || *events[0].PositionEnd != 16 {
		t.Errorf("expected position end 16, got %v", events[0].PositionEnd)
	}
}

func TestSink_EmptyBatch_NoWrite(t *testing.T) {
	store := audit.NewMemoryStore()
	sink := audit.NewSink(store, 1, 16)
	sink.Submit(audit.Submission{RequestID: "req-3"})
	sink.Close()

	count, _ := store.CountAuditEvents(context.Background(), models.AuditFilter{RequestID: "req-3"})
	if count != 0 {
		t.Errorf("expected no events for an empty submission, got %d", count)
	}
}

func TestMemoryStore_DeleteEventsBefore_RemovesOnlyExpired(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()

	old := &models.AuditEvent{RequestID: "old", Kind: "email", Action: "REDACTED", CreatedAt: time.Now().AddDate(0, 0, -100)}
	fresh := &models.AuditEvent{RequestID: "fresh", Kind: "email", Action: "REDACTED", CreatedAt: time.Now()}
	store.CreateAuditEvent(ctx, old)
	store.CreateAuditEvent(ctx, fresh)

	deleted, err := store.DeleteEventsBefore(ctx, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}

	remaining, _ := store.ListAuditEvents(ctx, models.AuditFilter{})
	if len(remaining) != 1 || remaining[0].RequestID != "fresh" {
		t.Fatalf("expected only the fresh event to remain, got %+v", remaining)
	}
}

func TestJanitor_RunsSweepOnStartAndRespectsCancellation(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()
	store.CreateAuditEvent(ctx, &models.AuditEvent{
		RequestID: "ancient", Kind: "email", Action: "REDACTED",
		CreatedAt: time.Now().AddDate(0, 0, -400),
	})

	janitor := audit.NewJanitor(store, time.Hour, 90)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Start(runCtx)
		close(done)
	}()

	// Give the immediate first cycle time to run, then stop the janitor.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after context cancellation")
	}

	count, _ := store.CountAuditEvents(ctx, models.AuditFilter{})
	if count != 0 {
		t.Errorf("expected the immediate sweep to purge the ancient event, got count=%d", count)
	}
}
