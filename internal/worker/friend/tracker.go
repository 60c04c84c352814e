package friend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/internal/storage/types"
	"go.uber.org/zap"
)

// FriendSource lists the friends of a user.
type FriendSource interface {
	GetFriends(ctx context.Context, userID int64) ([]fetcher.Friend, error)
}

// Tracker snapshots the tracked user's friends list and logs every
// addition and removal between snapshots.
type Tracker struct {
	store  *storage.Store
	source FriendSource
	userID int64
	now    func() time.Time
	logger *zap.Logger
	mu     sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the tracker's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a friend tracker for userID.
func New(store *storage.Store, source FriendSource, userID int64, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		source: source,
		userID: userID,
		now:    time.Now,
		logger: logger.Named("friend_tracker"),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RunOnce fetches the friends list, diffs it against the stored snapshot and,
// when anything changed, appends the changes to the history and replaces the
// snapshot. A failed fetch leaves both datasets untouched.
func (t *Tracker) RunOnce(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	current, err := t.fetch(ctx, now)
	if err != nil {
		t.logger.Error("Failed to fetch friends", zap.Error(err), zap.Int64("userID", t.userID))
		return err
	}

	previous := storage.Load(ctx, t.store, storage.FriendSnapshot, []types.FriendRecord{})

	added, removed := Diff(previous, current)
	if len(added) == 0 && len(removed) == 0 {
		t.logger.Debug("No friend changes", zap.Int("friends", len(current)))
		return nil
	}

	history := storage.Load(ctx, t.store, storage.FriendHistory, []types.FriendHistoryEvent{})

	stamp := now.UnixMilli()
	for _, record := range added {
		history = append(history, event(record, types.FriendAdded, stamp))
	}

	for _, record := range removed {
		history = append(history, event(record, types.FriendRemoved, stamp))
	}

	// History goes first so a failed write never hides a change behind an updated snapshot
	if err := t.store.SaveAll(ctx,
		storage.Entry{Dataset: storage.FriendHistory, Value: history},
		storage.Entry{Dataset: storage.FriendSnapshot, Value: current},
	); err != nil {
		return err
	}

	t.logger.Info("Friend changes recorded",
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)),
		zap.Int("friends", len(current)))

	return nil
}

// Reset replaces the snapshot with the current friends list and the history
// with one "added" event per friend stamped at the reset instant.
// Returns the number of friends.
func (t *Tracker) Reset(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	current, err := t.fetch(ctx, now)
	if err != nil {
		t.logger.Error("Failed to fetch friends for reset", zap.Error(err))
		return 0, err
	}

	readable := now.UTC().Format(time.RFC3339Nano)
	history := make([]types.FriendHistoryEvent, 0, len(current))

	for _, record := range current {
		e := event(record, types.FriendAdded, now.UnixMilli())
		e.TimestampReadable = readable
		history = append(history, e)
	}

	if err := t.store.SaveAll(ctx,
		storage.Entry{Dataset: storage.FriendHistory, Value: history},
		storage.Entry{Dataset: storage.FriendSnapshot, Value: current},
	); err != nil {
		return 0, err
	}

	t.logger.Info("Friend tracking reset", zap.Int("friends", len(current)))

	return len(current), nil
}

// Seed stores the current friends list as the snapshot with an empty history.
// Used on first boot so the first cycle does not log every friend as added.
func (t *Tracker) Seed(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.fetch(ctx, t.now())
	if err != nil {
		return fmt.Errorf("failed to seed friend snapshot: %w", err)
	}

	if err := t.store.SaveAll(ctx,
		storage.Entry{Dataset: storage.FriendHistory, Value: []types.FriendHistoryEvent{}},
		storage.Entry{Dataset: storage.FriendSnapshot, Value: current},
	); err != nil {
		return err
	}

	t.logger.Info("Seeded friend snapshot", zap.Int("friends", len(current)))

	return nil
}

// History returns the friend history, oldest first.
func (t *Tracker) History(ctx context.Context) []types.FriendHistoryEvent {
	history := storage.Load(ctx, t.store, storage.FriendHistory, []types.FriendHistoryEvent{})
	if history == nil {
		history = []types.FriendHistoryEvent{}
	}

	return history
}

// Snapshot returns the last stored friends list.
func (t *Tracker) Snapshot(ctx context.Context) []types.FriendRecord {
	snapshot := storage.Load(ctx, t.store, storage.FriendSnapshot, []types.FriendRecord{})
	if snapshot == nil {
		snapshot = []types.FriendRecord{}
	}

	return snapshot
}

// FriendIDs returns the ids of the last stored friends list.
func (t *Tracker) FriendIDs(ctx context.Context) []int64 {
	snapshot := t.Snapshot(ctx)

	ids := make([]int64, 0, len(snapshot))
	for _, record := range snapshot {
		ids = append(ids, record.ID)
	}

	return ids
}

func (t *Tracker) fetch(ctx context.Context, now time.Time) ([]types.FriendRecord, error) {
	friends, err := t.source.GetFriends(ctx, t.userID)
	if err != nil {
		return nil, err
	}

	records := make([]types.FriendRecord, 0, len(friends))
	for _, friend := range friends {
		records = append(records, types.FriendRecord{
			ID:          friend.ID,
			Name:        friend.Name,
			DisplayName: friend.DisplayName,
			AvatarURL:   friend.AvatarURL,
			Timestamp:   now.UnixMilli(),
		})
	}

	return records, nil
}

func event(record types.FriendRecord, kind types.FriendEventType, stamp int64) types.FriendHistoryEvent {
	return types.FriendHistoryEvent{
		ID:          record.ID,
		Name:        record.Name,
		DisplayName: record.DisplayName,
		AvatarURL:   record.AvatarURL,
		Type:        kind,
		Timestamp:   stamp,
	}
}
