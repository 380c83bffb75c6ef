package inbox

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/cache"
	"github.com/nhle/smsexpert/internal/model"
)

// hydrate seeds an empty inbox from the cached snapshot, once.
func (s *Store) hydrate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}
	s.hydrated = true
	s.mu.Unlock()

	if s.retention > 0 {
		if err := s.prune(ctx); err != nil {
			s.log.Warn("pruning cache failed", zap.Error(err))
		}
	}

	snap, err := s.cache.LoadSnapshot(ctx)
	if errors.Is(err, cache.ErrNoSnapshot) {
		return
	}
	if err != nil {
		s.log.Warn("loading cached inbox failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.generation != 0 || len(s.state.Notifications) != 0 {
		// A live fetch already won.
		s.mu.Unlock()
		return
	}
	s.state.Notifications = dedupe(snap.Notifications)
	s.state.UnreadCount = nonNegative(snap.Counts.UnreadCount)
	s.state.AdminUnread = nonNegative(snap.Counts.AdminUnread)
	s.state.PushUnread = nonNegative(snap.Counts.PushUnread)
	s.state.AcknowledgementRequired = nonNegative(snap.Counts.AcknowledgementRequired)
	s.state.HasMore = snap.HasMore
	s.state.CurrentPage = 1
	counts := s.state.Counts()
	s.mu.Unlock()

	s.log.Debug("inbox hydrated from cache",
		zap.Int("notifications", len(snap.Notifications)),
		zap.Time("saved_at", snap.SavedAt))
	s.metrics.SetCounts(counts)
	s.publish()
}

// persist writes the first page and the counters to the cache.
func (s *Store) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	head := s.state.Notifications
	hasMore := s.state.HasMore
	if len(head) > s.perPage {
		head = head[:s.perPage]
		hasMore = true
	}
	snap := cache.Snapshot{
		Notifications: append([]model.Notification(nil), head...),
		Counts:        s.state.Counts(),
		HasMore:       hasMore,
	}
	s.mu.Unlock()

	if err := s.cache.SaveSnapshot(ctx, snap); err != nil {
		s.log.Warn("caching inbox failed", zap.Error(err))
	}
}

func (s *Store) prune(ctx context.Context) error {
	removed, err := s.cache.Prune(ctx, time.Now().Add(-s.retention))
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Debug("pruned cached notifications", zap.Int64("removed", removed))
	}
	return nil
}
