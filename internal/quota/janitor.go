package quota

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const defaultSweepInterval = time.Hour

// Janitor deletes upload-attempt rows once they age past the retention
// period. Attempt records are advisory; without pruning the table grows
// without bound.
type Janitor struct {
	store     AttemptStore
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewJanitor builds a Janitor sweeping every interval; a non-positive
// interval falls back to hourly.
func NewJanitor(store AttemptStore, retention, interval time.Duration, log zerolog.Logger) (*Janitor, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Janitor{store: store, retention: retention, interval: interval, log: log, now: time.Now}, nil
}

// Run sweeps on a ticker until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := j.now().Add(-j.retention)
	pruned, err := j.store.PruneAttempts(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("prune upload attempts")
		return
	}
	if pruned > 0 {
		j.log.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned upload attempts")
	}
}
