package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetentionDays is used when no cutoff is configured.
const DefaultRetentionDays = 90

// Janitor runs the retention sweep on a scheduled cadence, deleting
// audit events older than RetentionDays. It only deletes: there is no
// archive step, since expired audit records have no retention value
// once past the cutoff.
type Janitor struct {
	store          Store
	interval       time.Duration
	retentionDays  int
}

// NewJanitor builds a Janitor. An interval below one hour (including
// zero) is replaced with the 24-hour default.
func NewJanitor(store Store, interval time.Duration, retentionDays int) *Janitor {
	if interval < time.Hour {
		interval = 24 * time.Hour
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Janitor{store: store, interval: interval, retentionDays: retentionDays}
}

// Start runs the janitor until ctx is canceled, sweeping once
// immediately and then on every tick.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().Dur("interval", j.interval).Int("retention_days", j.retentionDays).
		Msg("audit retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("audit retention janitor stopped")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

func (j *Janitor) runCycle(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("audit retention sweep failed")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("audit retention sweep complete")
	}
}
