package service

import (
	"context"
	"time"
)

// SnapshotClock reports when an event's score snapshot was last written.
type SnapshotClock interface {
	LatestCalculatedAt(ctx context.Context, eventID string) (time.Time, bool, error)
}

// Invalidator decides on read whether a score snapshot must be rebuilt.
// There is no background timer: staleness is only evaluated when asked.
type Invalidator struct {
	scores SnapshotClock
	now    func() time.Time
}

// NewInvalidator creates an Invalidator. A nil now uses time.Now.
func NewInvalidator(scores SnapshotClock, now func() time.Time) *Invalidator {
	if now == nil {
		now = time.Now
	}
	return &Invalidator{scores: scores, now: now}
}

// ScoresAreStale is true when the event has no snapshot yet or the newest
// snapshot is older than refreshInterval.
func (i *Invalidator) ScoresAreStale(ctx context.Context, eventID string, refreshInterval time.Duration) (bool, error) {
	latest, ok, err := i.scores.LatestCalculatedAt(ctx, eventID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return i.now().Sub(latest) > refreshInterval, nil
}
