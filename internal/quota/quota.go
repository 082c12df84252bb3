// Package quota enforces the daily per-source upload quota.
package quota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bytestream/internal/filestore"
)

// DefaultDailyLimit is the number of uploads a single source may perform per
// calendar day.
const DefaultDailyLimit = 4

// AttemptStore is the slice of the record store the limiter needs.
type AttemptStore interface {
	ReserveUploadSlot(ctx context.Context, attempt filestore.UploadAttempt, windowStart time.Time, limit int) (bool, error)
	PruneAttempts(ctx context.Context, olderThan time.Time) (int64, error)
}

// Limiter admits or rejects uploads against a sliding calendar-day window.
// Admission and attempt recording happen in one store operation, so a burst
// of concurrent uploads from the same source cannot overshoot the limit.
type Limiter struct {
	store AttemptStore
	limit int
	now   func() time.Time
}

// NewLimiter builds a Limiter; a non-positive limit falls back to
// DefaultDailyLimit.
func NewLimiter(store AttemptStore, limit int) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Limiter{store: store, limit: limit, now: time.Now}, nil
}

// Admit reserves an upload slot for the source. A false result means the
// caller must reject the upload; no attempt row is recorded in that case.
func (l *Limiter) Admit(ctx context.Context, source, userName, fileName string) (bool, error) {
	now := l.now()
	attempt := filestore.UploadAttempt{
		ID:            uuid.New(),
		SourceAddress: source,
		UserName:      userName,
		FileName:      fileName,
		Timestamp:     now,
	}
	return l.store.ReserveUploadSlot(ctx, attempt, WindowStart(now), l.limit)
}

// WindowStart truncates t to midnight server-local time. An attempt at
// 23:59:59 and one at 00:00:01 the next day land in different windows; the
// quota is a daily quota, not a rolling 24h one.
func WindowStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
