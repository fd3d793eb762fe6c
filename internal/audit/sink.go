package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/llmguardian/pkg/metrics"
	"github.com/agentoven/llmguardian/pkg/models"
)

// Submission is one request's worth of detections to persist — the
// sink writes them as a single batch.
type Submission struct {
	RequestID string
	Detailed  bool // iff true, position start/end are persisted
	Records   []models.SVDetectionRecord
}

// Sink is the fire-and-forget write path: Submit never blocks the
// orchestrator on storage I/O. A bounded worker pool drains a buffered
// submission queue; Submit drops rather than blocks when the queue is
// full, so a slow store degrades audit coverage instead of request
// latency.
type Sink struct {
	store   Store
	queue   chan Submission
	workers int
	wg      sync.WaitGroup
	closeCh chan struct{}
	once    sync.Once
	mx      *metrics.Metrics
}

// SetMetrics attaches a metrics recorder; safe to skip in tests.
func (s *Sink) SetMetrics(mx *metrics.Metrics) {
	s.mx = mx
}

// NewSink starts a Sink with the given worker count and queue depth.
// When the queue is full, Submit drops the batch and logs a warning —
// audit failures never affect the user-facing response.
func NewSink(store Store, workers, queueDepth int) *Sink {
	if workers <= 0 {
		workers = 2
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	s := &Sink{
		store:   store,
		queue:   make(chan Submission, queueDepth),
		workers: workers,
		closeCh: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit enqueues a batch for async persistence. Non-blocking: on a
// full queue the batch is dropped.
func (s *Sink) Submit(sub Submission) {
	if len(sub.Records) == 0 {
		return
	}
	select {
	case s.queue <- sub:
	default:
		log.Warn().Str("request_id", sub.RequestID).Int("records", len(sub.Records)).
			Msg("audit queue full, dropping batch")
		if s.mx != nil {
			s.mx.AuditIOErrors.Inc()
		}
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.closeCh:
			s.drain()
			return
		case sub := <-s.queue:
			s.writeBatch(sub)
		}
	}
}

// drain flushes whatever remains in the queue without blocking
// indefinitely, giving in-flight submissions a chance to persist
// during shutdown.
func (s *Sink) drain() {
	for {
		select {
		case sub := <-s.queue:
			s.writeBatch(sub)
		default:
			return
		}
	}
}

func (s *Sink) writeBatch(sub Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, rec := range sub.Records {
		event := &models.AuditEvent{
			RequestID:      sub.RequestID,
			Kind:           rec.Kind,
			Token:          rec.Token,
			OriginalLength: rec.OriginalLength,
			Action:         "REDACTED",
			CreatedAt:      rec.DetectedAt,
		}
		if sub.Detailed && rec.HasPosition {
			start, end := rec.Start, rec.End
			event.PositionStart = &start
			event.PositionEnd = &end
		}
		if err := s.store.CreateAuditEvent(ctx, event); err != nil {
			log.Warn().Err(err).Str("request_id", sub.RequestID).Str("kind", rec.Kind).
				Msg("audit write failed")
			if s.mx != nil {
				s.mx.AuditIOErrors.Inc()
			}
		}
	}
}

// Close signals the workers to stop, each draining what is left in the
// queue first, and waits for them to exit. Submit does not check for a
// closed sink; batches submitted after Close are not written.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.closeCh)
		s.wg.Wait()
	})
}
