package presence

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/internal/storage/types"
	"github.com/robalyx/rowatch/pkg/utils"
	"go.uber.org/zap"
)

// PresenceSource fetches presences for a list of users.
type PresenceSource interface {
	FetchPresences(ctx context.Context, userIDs []int64) ([]fetcher.Presence, error)
}

// FriendIDSource lists friend ids live from the API.
type FriendIDSource interface {
	GetFriendIDs(ctx context.Context, userID int64) ([]int64, error)
}

// SnapshotSource returns the friend ids of the last stored snapshot.
type SnapshotSource interface {
	FriendIDs(ctx context.Context) []int64
}

// Tracker keeps the map of friends currently offline to the moment they
// were first seen offline.
type Tracker struct {
	store     *storage.Store
	presences PresenceSource
	friends   FriendIDSource
	snapshot  SnapshotSource
	userID    int64
	now       func() time.Time
	logger    *zap.Logger
	mu        sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the tracker's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a presence tracker for the friends of userID.
func New(
	store *storage.Store, presences PresenceSource, friends FriendIDSource, snapshot SnapshotSource,
	userID int64, logger *zap.Logger, opts ...Option,
) *Tracker {
	t := &Tracker{
		store:     store,
		presences: presences,
		friends:   friends,
		snapshot:  snapshot,
		userID:    userID,
		now:       time.Now,
		logger:    logger.Named("presence_tracker"),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RunOnce fetches the presence of every friend and updates the last-online map.
// Entries for users who are no longer friends are dropped. The map is only
// written when an entry was added or removed.
func (t *Tracker) RunOnce(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	friendIDs := t.snapshot.FriendIDs(ctx)
	if len(friendIDs) == 0 {
		ids, err := t.friends.GetFriendIDs(ctx, t.userID)
		if err != nil {
			t.logger.Error("Failed to fetch friend ids", zap.Error(err))
			return err
		}

		friendIDs = ids
	}

	if len(friendIDs) == 0 {
		t.logger.Debug("No friends to track")
		return nil
	}

	presences, err := t.presences.FetchPresences(ctx, friendIDs)
	if err != nil {
		t.logger.Error("Failed to fetch presences", zap.Error(err), zap.Int("friends", len(friendIDs)))
		return err
	}

	lastOnline := t.LastOnline(ctx)
	applied := Apply(lastOnline, presences, t.now())
	pruned := Prune(lastOnline, friendIDs)
	if !applied && !pruned {
		return nil
	}

	if err := t.store.Save(ctx, storage.LastOnline, lastOnline); err != nil {
		return err
	}

	t.logger.Debug("Updated last online map",
		zap.Int("presences", len(presences)),
		zap.Int("offline", len(lastOnline)))

	return nil
}

// LastOnline returns the stored last-online map.
func (t *Tracker) LastOnline(ctx context.Context) types.LastSeenMap {
	lastOnline := storage.Load(ctx, t.store, storage.LastOnline, types.LastSeenMap{})
	if lastOnline == nil {
		lastOnline = types.LastSeenMap{}
	}

	return lastOnline
}

// Apply updates lastOnline from presences: an offline user without an entry
// gets now, an online user loses its entry. Users without a presence record
// keep their entry. Reports whether the map changed.
func Apply(lastOnline types.LastSeenMap, presences []fetcher.Presence, now time.Time) bool {
	changed := false
	stamp := now.UTC().Format(time.RFC3339Nano)

	for _, p := range presences {
		key := utils.FormatID(p.UserID)
		_, seen := lastOnline[key]

		switch {
		case p.Type.Online() && seen:
			delete(lastOnline, key)
			changed = true
		case !p.Type.Online() && !seen:
			lastOnline[key] = stamp
			changed = true
		}
	}

	return changed
}

// Prune removes entries for users no longer in friendIDs. Reports whether
// the map changed.
func Prune(lastOnline types.LastSeenMap, friendIDs []int64) bool {
	current := make(map[string]struct{}, len(friendIDs))
	for _, id := range friendIDs {
		current[utils.FormatID(id)] = struct{}{}
	}

	changed := false
	for key := range lastOnline {
		if _, ok := current[key]; !ok {
			delete(lastOnline, key)
			changed = true
		}
	}

	return changed
}
