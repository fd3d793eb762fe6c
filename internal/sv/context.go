package sv

import (
	"sync"
	"time"

	"github.com/agentoven/llmguardian/pkg/models"
)

// Context is the per-request, request-owned container: a
// token->original map, an ordered detection log, and a
// monotonic counter. It is created at request entry, mutated only by
// the redactor/restorer, and read asynchronously by the audit sink —
// hence the mutex, even though a single request owns it exclusively
// for writes.
type Context struct {
	mu         sync.RWMutex
	RequestID  string
	CreatedAt  time.Time
	tokenMap   map[string]string
	detections []models.SVDetectionRecord
	counter    uint64
}

// NewContext creates an empty SV context for one request.
func NewContext(requestID string) *Context {
	return &Context{
		RequestID: requestID,
		CreatedAt: time.Now(),
		tokenMap:  make(map[string]string),
	}
}

// put inserts a token->original mapping and appends its detection
// record. Called only by the redactor.
func (c *Context) put(token, original string, kind string, start, end int, withPosition bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokenMap[token] = original
	rec := models.SVDetectionRecord{
		Kind:           kind,
		Token:          token,
		OriginalLength: len(original),
		DetectedAt:     time.Now(),
	}
	if withPosition {
		rec.Start, rec.End, rec.HasPosition = start, end, true
	}
	c.detections = append(c.detections, rec)
	c.counter++
}

// Lookup returns the original value for a token, if known.
func (c *Context) Lookup(token string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tokenMap[token]
	return v, ok
}

// Detections returns a snapshot copy of the detection log, safe to
// read concurrently with in-flight redaction (used by the audit sink).
func (c *Context) Detections() []models.SVDetectionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.SVDetectionRecord, len(c.detections))
	copy(out, c.detections)
	return out
}

// Count returns the number of detections recorded so far.
func (c *Context) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.detections)
}
