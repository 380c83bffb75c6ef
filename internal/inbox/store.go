package inbox

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/cache"
	"github.com/nhle/smsexpert/internal/metrics"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/notifyapi"
	"github.com/nhle/smsexpert/internal/sync"
)

var (
	// ErrNotFound is returned when a notification is neither cached locally
	// nor retrievable from the server.
	ErrNotFound = errors.New("notification not found")

	// ErrRequestFailed wraps the server message of an unsuccessful call.
	ErrRequestFailed = errors.New("request failed")
)

// Job names registered on the poller.
const (
	JobUnreadCount = "unread-count"
	JobCachePrune  = "cache-prune"
)

const (
	DefaultPollInterval = 60 * time.Second
	pruneInterval       = 6 * time.Hour
)

// API is the part of the notification API the store drives.
// *notifyapi.Client satisfies it.
type API interface {
	GetNotifications(ctx context.Context, params notifyapi.ListParams) notifyapi.Result[notifyapi.Page]
	GetUnreadCount(ctx context.Context) notifyapi.Result[model.UnreadCounts]
	MarkAsRead(ctx context.Context, id string) notifyapi.Result[bool]
	MarkAllAsRead(ctx context.Context) notifyapi.Result[bool]
	AcknowledgeNotification(ctx context.Context, id string) notifyapi.Result[bool]
	DeleteNotification(ctx context.Context, id string) notifyapi.Result[bool]
	GetNotificationByID(ctx context.Context, id string) notifyapi.Result[model.Notification]
}

type pendingOp int

const (
	opRead pendingOp = 1 << iota
	opAck
)

// Option configures a Store.
type Option func(*Store)

// WithCache persists the inbox head so it can be shown before the first
// network round trip.
func WithCache(c cache.Cache, retention time.Duration) Option {
	return func(s *Store) {
		s.cache = c
		s.retention = retention
	}
}

// WithMetrics publishes counters and poll results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithPerPage sets the list page size.
func WithPerPage(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.perPage = n
		}
	}
}

// WithPollInterval sets how often counters are refreshed in the background.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// Store owns the notification list and counters. It is the only mutator of
// that state; consumers call its operations and observe changes through
// State or Subscribe. Every method is safe for concurrent use.
type Store struct {
	api          API
	cache        cache.Cache
	retention    time.Duration
	metrics      *metrics.Metrics
	log          *zap.Logger
	poller       *sync.Poller
	perPage      int
	pollInterval time.Duration

	mu         gosync.Mutex
	state      State
	generation uint64
	// countsEpoch advances on every counter write taken from the server.
	// Rollbacks only restore counters when no such write happened since.
	countsEpoch uint64
	pending    map[string]pendingOp
	hydrated   bool

	subMu  gosync.Mutex
	subs   map[int]chan State
	nextID int
}

// New creates a Store. Nothing runs in the background until Start.
func New(api API, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		api:          api,
		log:          logger,
		perPage:      notifyapi.DefaultPerPage,
		pollInterval: DefaultPollInterval,
		state:        State{HasMore: true},
		pending:      make(map[string]pendingOp),
		subs:         make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.poller = sync.New(logger, s.metrics)
	if err := s.poller.Register(JobUnreadCount, s.pollInterval, s.RefreshUnreadCount); err != nil {
		s.log.Error("registering job failed", zap.String("job", JobUnreadCount), zap.Error(err))
	}
	if s.cache != nil && s.retention > 0 {
		if err := s.poller.Register(JobCachePrune, pruneInterval, s.prune); err != nil {
			s.log.Error("registering job failed", zap.String("job", JobCachePrune), zap.Error(err))
		}
	}
	return s
}

// Start hydrates the inbox from the local cache, then refreshes counters
// immediately and on every poll interval until Stop.
func (s *Store) Start(ctx context.Context) error {
	s.hydrate(ctx)
	if err := s.poller.Start(ctx); err != nil {
		return fmt.Errorf("starting inbox polling: %w", err)
	}
	return nil
}

// Stop clears the polling schedule.
func (s *Store) Stop() error {
	if err := s.poller.Stop(); err != nil {
		return fmt.Errorf("stopping inbox polling: %w", err)
	}
	return nil
}

// JobStatuses reports the background jobs.
func (s *Store) JobStatuses() []sync.JobStatus {
	return s.poller.Statuses()
}

// State returns a snapshot of the current inbox.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Notifications = append([]model.Notification(nil), s.state.Notifications...)
	st.Pending = make(map[string]bool, len(s.pending))
	for id := range s.pending {
		st.Pending[id] = true
	}
	return st
}

// Subscribe returns a channel receiving the state after every change. The
// channel holds only the latest state: a slow reader skips intermediate
// snapshots and the store never blocks on it. cancel closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once gosync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

// publish fans the current state out to subscribers. It must be called
// without s.mu held.
func (s *Store) publish() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if len(s.subs) == 0 {
		return
	}
	st := s.State()
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Replace the stale snapshot nobody has read yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// RefreshNotifications reloads page one, replacing the list, then refreshes
// the counters. Responses of refreshes superseded by a newer one are
// discarded.
func (s *Store) RefreshNotifications(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state.CurrentPage = 1
	s.state.HasMore = true
	s.state.IsLoading = true
	s.mu.Unlock()
	s.publish()

	res := s.api.GetNotifications(ctx, notifyapi.ListParams{Page: 1, PerPage: s.perPage})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding stale notification list", zap.Uint64("generation", gen))
		return nil
	}
	s.state.IsLoading = false
	if !res.Success {
		s.mu.Unlock()
		s.publish()
		s.log.Warn("refreshing notifications failed", zap.String("message", res.Message))
		return fmt.Errorf("refreshing notifications: %w: %s", ErrRequestFailed, res.Message)
	}
	s.state.Notifications = s.overlayPendingLocked(dedupe(res.Data.Notifications))
	s.state.CurrentPage = 1
	s.state.HasMore = res.Data.Pagination.More()
	s.mu.Unlock()
	s.publish()

	s.persist(ctx)

	if err := s.pollCountsNow(ctx); err != nil {
		s.log.Warn("refreshing counters after list refresh failed", zap.Error(err))
	}
	return nil
}

// LoadMoreNotifications appends the next page. It does nothing when the
// list is exhausted or another list fetch is in flight. Entries already
// present are not duplicated.
func (s *Store) LoadMoreNotifications(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.HasMore || s.state.IsLoading {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	page := s.state.CurrentPage + 1
	s.state.IsLoading = true
	s.mu.Unlock()
	s.publish()

	res := s.api.GetNotifications(ctx, notifyapi.ListParams{Page: page, PerPage: s.perPage})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding stale notification page", zap.Int("page", page))
		return nil
	}
	s.state.IsLoading = false
	if !res.Success {
		s.mu.Unlock()
		s.publish()
		s.log.Warn("loading more notifications failed", zap.Int("page", page), zap.String("message", res.Message))
		return fmt.Errorf("loading page %d: %w: %s", page, ErrRequestFailed, res.Message)
	}
	s.state.Notifications = merge(s.state.Notifications, s.overlayPendingLocked(res.Data.Notifications))
	s.state.CurrentPage = page
	s.state.HasMore = res.Data.Pagination.More()
	s.mu.Unlock()
	s.publish()
	return nil
}

// MarkAsRead marks the notification read locally right away, confirms with
// the server and reverts the local change when the server refuses. On
// success the counters are refreshed from the server.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	i := indexOf(s.state.Notifications, id)
	if i >= 0 && (s.state.Notifications[i].IsRead || s.isPending(s.state.Notifications[i].ID, opRead)) {
		s.mu.Unlock()
		return nil
	}

	var undo func()
	var key string
	if i >= 0 {
		key = s.state.Notifications[i].ID
		undo = s.applyReadLocked(i)
	}
	s.mu.Unlock()
	s.publish()

	res := s.api.MarkAsRead(ctx, id)
	if !res.Success {
		if undo != nil {
			s.mu.Lock()
			undo()
			s.mu.Unlock()
			s.publish()
		}
		s.log.Warn("marking notification read failed", zap.String("id", id), zap.String("message", res.Message))
		return fmt.Errorf("marking %s read: %w: %s", id, ErrRequestFailed, res.Message)
	}

	if undo != nil {
		s.mu.Lock()
		s.clearPending(key, opRead)
		s.mu.Unlock()
		s.publish()
	}

	if err := s.RefreshUnreadCount(ctx); err != nil {
		s.log.Warn("refreshing counters after mark read failed", zap.Error(err))
	}
	return nil
}

// applyReadLocked flips entry i to read, decrements the counters and
// returns the function restoring both.
func (s *Store) applyReadLocked(i int) func() {
	n := &s.state.Notifications[i]
	id := n.ID
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	s.setPending(id, opRead)

	unread := s.state.UnreadCount > 0
	s.state.UnreadCount = decrement(s.state.UnreadCount)

	var sourceCounter *int
	switch n.Source {
	case model.SourceAdmin:
		sourceCounter = &s.state.AdminUnread
	case model.SourcePush:
		sourceCounter = &s.state.PushUnread
	}
	sourced := sourceCounter != nil && *sourceCounter > 0
	if sourced {
		*sourceCounter--
	}
	epoch := s.countsEpoch

	return func() {
		s.clearPending(id, opRead)
		if j := indexOf(s.state.Notifications, id); j >= 0 {
			s.state.Notifications[j].IsRead = false
			s.state.Notifications[j].ReadAt = nil
		}
		if s.countsEpoch != epoch {
			return
		}
		if unread {
			s.state.UnreadCount++
		}
		if sourced {
			*sourceCounter++
		}
	}
}

// MarkAllAsRead marks every notification read once the server confirms.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	res := s.api.MarkAllAsRead(ctx)
	if !res.Success {
		s.log.Warn("marking all notifications read failed", zap.String("message", res.Message))
		return fmt.Errorf("marking all read: %w: %s", ErrRequestFailed, res.Message)
	}

	s.mu.Lock()
	now := time.Now()
	for i := range s.state.Notifications {
		n := &s.state.Notifications[i]
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	for id := range s.pending {
		s.clearPending(id, opRead)
	}
	s.state.UnreadCount = 0
	s.state.AdminUnread = 0
	s.state.PushUnread = 0
	s.countsEpoch++
	counts := s.state.Counts()
	s.mu.Unlock()

	s.metrics.SetCounts(counts)
	s.publish()
	s.persist(ctx)
	return nil
}

// AcknowledgeNotification acknowledges the notification locally right away,
// confirms with the server and reverts when the server refuses.
func (s *Store) AcknowledgeNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	i := indexOf(s.state.Notifications, id)

	var undo func()
	var key string
	if i >= 0 {
		n := s.state.Notifications[i]
		if !n.RequiresAcknowledgement {
			s.mu.Unlock()
			return fmt.Errorf("acknowledging %s: %w", id, model.ErrAckWithoutRequirement)
		}
		if n.IsAcknowledged || s.isPending(n.ID, opAck) {
			s.mu.Unlock()
			return nil
		}
		key = n.ID
		undo = s.applyAckLocked(i)
	}
	s.mu.Unlock()
	s.publish()

	res := s.api.AcknowledgeNotification(ctx, id)
	if !res.Success {
		if undo != nil {
			s.mu.Lock()
			undo()
			s.mu.Unlock()
			s.publish()
		}
		s.log.Warn("acknowledging notification failed", zap.String("id", id), zap.String("message", res.Message))
		return fmt.Errorf("acknowledging %s: %w: %s", id, ErrRequestFailed, res.Message)
	}

	s.mu.Lock()
	s.clearPending(key, opAck)
	counts := s.state.Counts()
	s.mu.Unlock()
	s.metrics.SetCounts(counts)
	s.publish()
	return nil
}

func (s *Store) applyAckLocked(i int) func() {
	n := &s.state.Notifications[i]
	id := n.ID
	now := time.Now()
	n.IsAcknowledged = true
	n.AcknowledgedAt = &now
	s.setPending(id, opAck)

	decremented := s.state.AcknowledgementRequired > 0
	s.state.AcknowledgementRequired = decrement(s.state.AcknowledgementRequired)
	epoch := s.countsEpoch

	return func() {
		s.clearPending(id, opAck)
		if j := indexOf(s.state.Notifications, id); j >= 0 {
			s.state.Notifications[j].IsAcknowledged = false
			s.state.Notifications[j].AcknowledgedAt = nil
		}
		if decremented && s.countsEpoch == epoch {
			s.state.AcknowledgementRequired++
		}
	}
}

// DeleteNotification removes the notification once the server confirms.
// Counters drop only for what the removed entry still contributed.
func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	res := s.api.DeleteNotification(ctx, id)
	if !res.Success {
		s.log.Warn("deleting notification failed", zap.String("id", id), zap.String("message", res.Message))
		return fmt.Errorf("deleting %s: %w: %s", id, ErrRequestFailed, res.Message)
	}

	s.mu.Lock()
	i := indexOf(s.state.Notifications, id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.state.Notifications[i]
	s.state.Notifications = append(s.state.Notifications[:i:i], s.state.Notifications[i+1:]...)
	delete(s.pending, removed.ID)
	if !removed.IsRead {
		s.state.UnreadCount = decrement(s.state.UnreadCount)
		switch removed.Source {
		case model.SourceAdmin:
			s.state.AdminUnread = decrement(s.state.AdminUnread)
		case model.SourcePush:
			s.state.PushUnread = decrement(s.state.PushUnread)
		}
	}
	if removed.NeedsAcknowledgement() {
		s.state.AcknowledgementRequired = decrement(s.state.AcknowledgementRequired)
	}
	counts := s.state.Counts()
	s.mu.Unlock()

	s.metrics.SetCounts(counts)
	s.publish()
	s.persist(ctx)
	return nil
}

// GetNotification returns the notification from the local list, falling
// back to the server on a miss.
func (s *Store) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	if n, ok := s.FindNotificationByID(id); ok {
		return n, nil
	}

	res := s.api.GetNotificationByID(ctx, id)
	if !res.Success {
		s.log.Warn("fetching notification failed", zap.String("id", id), zap.String("message", res.Message))
		return model.Notification{}, fmt.Errorf("fetching %s: %w: %s", id, ErrNotFound, res.Message)
	}
	return res.Data, nil
}

// FindNotificationByID looks the notification up in the local list only.
func (s *Store) FindNotificationByID(id string) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Find(id)
}

// RefreshUnreadCount replaces the counters with the server's.
func (s *Store) RefreshUnreadCount(ctx context.Context) error {
	res := s.api.GetUnreadCount(ctx)
	if !res.Success {
		return fmt.Errorf("refreshing unread count: %w: %s", ErrRequestFailed, res.Message)
	}

	counts := model.UnreadCounts{
		UnreadCount:             nonNegative(res.Data.UnreadCount),
		AdminUnread:             nonNegative(res.Data.AdminUnread),
		PushUnread:              nonNegative(res.Data.PushUnread),
		AcknowledgementRequired: nonNegative(res.Data.AcknowledgementRequired),
	}

	s.mu.Lock()
	s.countsEpoch++
	s.state.UnreadCount = counts.UnreadCount
	s.state.AdminUnread = counts.AdminUnread
	s.state.PushUnread = counts.PushUnread
	s.state.AcknowledgementRequired = counts.AcknowledgementRequired
	s.mu.Unlock()

	s.metrics.SetCounts(counts)
	s.publish()

	if s.cache != nil {
		if err := s.cache.SaveCounts(ctx, counts); err != nil {
			s.log.Warn("caching counters failed", zap.Error(err))
		}
	}
	return nil
}

// pollCountsNow runs the counter job out of schedule when polling is
// active, so it never overlaps a scheduled poll. Without polling the
// counters are fetched inline.
func (s *Store) pollCountsNow(ctx context.Context) error {
	if s.poller.Running() {
		err := s.poller.RefreshNow(JobUnreadCount)
		if !errors.Is(err, sync.ErrNotRunning) {
			return err
		}
	}
	return s.RefreshUnreadCount(ctx)
}

// overlayPendingLocked re-applies in-flight optimistic changes to entries
// fresh from the server.
func (s *Store) overlayPendingLocked(list []model.Notification) []model.Notification {
	if len(s.pending) == 0 {
		return list
	}
	now := time.Now()
	for i := range list {
		op := s.pending[list[i].ID]
		if op&opRead != 0 && !list[i].IsRead {
			list[i].IsRead = true
			list[i].ReadAt = &now
		}
		if op&opAck != 0 && !list[i].IsAcknowledged && list[i].RequiresAcknowledgement {
			list[i].IsAcknowledged = true
			list[i].AcknowledgedAt = &now
		}
	}
	return list
}

func (s *Store) setPending(id string, op pendingOp) {
	s.pending[id] |= op
}

func (s *Store) clearPending(id string, op pendingOp) {
	if rest := s.pending[id] &^ op; rest != 0 {
		s.pending[id] = rest
		return
	}
	delete(s.pending, id)
}

func (s *Store) isPending(id string, op pendingOp) bool {
	return s.pending[id]&op != 0
}

// merge appends the entries of next whose id is not in list yet.
func merge(list, next []model.Notification) []model.Notification {
	seen := make(map[string]struct{}, len(list)+len(next))
	for _, n := range list {
		seen[n.ID] = struct{}{}
	}
	out := append([]model.Notification(nil), list...)
	for _, n := range next {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func dedupe(list []model.Notification) []model.Notification {
	return merge(nil, list)
}
