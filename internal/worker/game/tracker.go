package game

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/internal/storage/types"
	"go.uber.org/zap"
)

// PresenceSource fetches the presence of one user.
type PresenceSource interface {
	FetchPresence(ctx context.Context, userID int64) (fetcher.Presence, bool, error)
}

// Tracker records every place the tracked user has been seen in.
type Tracker struct {
	store    *storage.Store
	presence PresenceSource
	userID   int64
	now      func() time.Time
	logger   *zap.Logger
	mu       sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the tracker's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a game tracker for userID.
func New(store *storage.Store, presence PresenceSource, userID int64, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		presence: presence,
		userID:   userID,
		now:      time.Now,
		logger:   logger.Named("game_tracker"),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RunOnce records the place the user is currently in, if any.
func (t *Tracker) RunOnce(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	placeID, err := t.currentPlace(ctx)
	if err != nil {
		t.logger.Error("Failed to fetch presence", zap.Error(err), zap.Int64("userID", t.userID))
		return err
	}

	if placeID == 0 {
		return nil
	}

	now := t.now().UTC().Truncate(time.Millisecond)
	history := t.History(ctx)

	found := false
	for i := range history {
		if history[i].PlaceID == placeID {
			history[i].LastSeen = now
			found = true

			break
		}
	}

	if !found {
		history = append(history, types.GameSession{PlaceID: placeID, FirstSeen: now, LastSeen: now})
		t.logger.Info("New game logged", zap.Int64("placeID", placeID))
	}

	return t.store.Save(ctx, storage.GameHistory, history)
}

// Reset discards the history and, if the user is in a place right now,
// starts it again with that place. Returns the new history.
func (t *Tracker) Reset(ctx context.Context) ([]types.GameSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	placeID, err := t.currentPlace(ctx)
	if err != nil {
		t.logger.Error("Failed to fetch presence for reset", zap.Error(err))
		return nil, err
	}

	history := []types.GameSession{}
	if placeID != 0 {
		now := t.now().UTC().Truncate(time.Millisecond)
		history = append(history, types.GameSession{PlaceID: placeID, FirstSeen: now, LastSeen: now})
	}

	if err := t.store.Save(ctx, storage.GameHistory, history); err != nil {
		return nil, err
	}

	t.logger.Info("Game history reset", zap.Int("sessions", len(history)))

	return history, nil
}

// History returns every recorded session in first-seen order.
func (t *Tracker) History(ctx context.Context) []types.GameSession {
	history := storage.Load(ctx, t.store, storage.GameHistory, []types.GameSession{})
	if history == nil {
		history = []types.GameSession{}
	}

	return history
}

// currentPlace returns the user's current place id, or 0 when not in a place.
func (t *Tracker) currentPlace(ctx context.Context) (int64, error) {
	p, ok, err := t.presence.FetchPresence(ctx, t.userID)
	if err != nil {
		return 0, err
	}

	if !ok || p.PlaceID == nil {
		return 0, nil
	}

	return *p.PlaceID, nil
}
