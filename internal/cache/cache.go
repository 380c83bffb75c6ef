package cache

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/smsexpert/internal/model"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no cached snapshot")

// Snapshot is the last known state of the inbox head: the first page of
// notifications and the counters that came with it.
type Snapshot struct {
	Notifications []model.Notification
	Counts        model.UnreadCounts
	HasMore       bool
	SavedAt       time.Time
}

// Cache persists inbox snapshots between runs.
type Cache interface {
	// SaveSnapshot replaces the cached list and counters.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// SaveCounts updates the counters only.
	SaveCounts(ctx context.Context, counts model.UnreadCounts) error

	// LoadSnapshot returns the cached state or ErrNoSnapshot.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// Prune drops cached notifications saved before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
