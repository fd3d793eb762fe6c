package cache

import (
	"context"
	"errors"
	"time"

	"github.com/agentoven/llmguardian/pkg/metrics"
	"github.com/agentoven/llmguardian/pkg/models"
)

// Manager implements the read-through/write-through policy over a
// tier-1/tier-2 pair: check T1, on miss check T2 and promote on hit;
// write to both; evict/clear from both.
type Manager struct {
	prefix string
	tier1  Tier
	tier2  Tier
	ttl2   time.Duration
	mx     *metrics.Metrics
}

// NewManager builds a Manager. ttl2 is the TTL applied to tier-2 writes
// (tier-1's TTL is configured on the MemoryTier itself).
func NewManager(prefix string, tier1, tier2 Tier, ttl2 time.Duration) *Manager {
	return &Manager{prefix: prefix, tier1: tier1, tier2: tier2, ttl2: ttl2}
}

// SetMetrics attaches a metrics recorder; safe to skip in tests, in
// which case Get/Clear do not record series.
func (m *Manager) SetMetrics(mx *metrics.Metrics) {
	m.mx = mx
}

// Get performs the read-through lookup. A lookup error from either tier
// that isn't a bare "key not found" (e.g. a Redis connection failure)
// is counted as a cache-io error and treated as a miss, per the
// cache-io error policy: logged/metered, never surfaced to the caller.
func (m *Manager) Get(ctx context.Context, key string) (string, bool) {
	val, err := m.tier1.Get(ctx, key)
	if err == nil {
		m.recordHit("l1")
		return val, true
	}
	if !errors.Is(err, ErrKeyNotFound) {
		m.recordIOError("l1", "get")
	}
	val, err = m.tier2.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			m.recordIOError("l2", "get")
		}
		m.recordMiss("l1")
		return "", false
	}
	m.recordHit("l2")
	// Promote into tier-1 with its own default TTL (ttl=0 signals "use
	// the tier's default" per MemoryTier.Set).
	_ = m.tier1.Set(ctx, key, val, 0)
	return val, true
}

// Set writes to both tiers.
func (m *Manager) Set(ctx context.Context, key, value string) {
	_ = m.tier1.Set(ctx, key, value, 0)
	_ = m.tier2.Set(ctx, key, value, m.ttl2)
}

// Evict removes key from both tiers.
func (m *Manager) Evict(ctx context.Context, key string) {
	_ = m.tier1.Delete(ctx, key)
	_ = m.tier2.Delete(ctx, key)
}

// Clear removes every key owned by this cache's prefix from both
// tiers.
func (m *Manager) Clear(ctx context.Context) {
	_ = m.tier1.Clear(ctx, m.prefix)
	_ = m.tier2.Clear(ctx, m.prefix)
}

// Stats reports the cache-health metric. The hit-rate denominator is
// tier-1 requests only: tier-2 promotions already land in tier-1's own
// hit count on the next lookup, so counting tier-2 separately would
// double-count the same logical request (resolved open question, see
// design notes).
func (m *Manager) Stats() models.CacheStats {
	s1 := m.tier1.Stats()
	total := s1.Hits + s1.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(s1.Hits) / float64(total)
	}
	return models.CacheStats{
		TotalKeys: s1.Size,
		Hits:      s1.Hits,
		Misses:    s1.Misses,
		Evictions: s1.Evictions,
		HitRate:   hitRate,
	}
}

// HealthCheck performs a write-read-delete cycle against each tier;
// tier-2 reports healthy without I/O when disabled.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.tier1.HealthCheck(ctx); err != nil {
		return err
	}
	if err := m.tier2.HealthCheck(ctx); err != nil {
		return err
	}
	return nil
}

// Close shuts down both tiers, returning the first error encountered.
func (m *Manager) Close() error {
	err1 := m.tier1.Close()
	err2 := m.tier2.Close()
	return errors.Join(err1, err2)
}

func (m *Manager) recordHit(tier string) {
	if m.mx != nil {
		m.mx.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (m *Manager) recordMiss(tier string) {
	if m.mx != nil {
		m.mx.CacheMissesTotal.WithLabelValues(tier).Inc()
	}
}

func (m *Manager) recordIOError(tier, op string) {
	if m.mx != nil {
		m.mx.CacheIOErrors.WithLabelValues(tier, op).Inc()
	}
}
