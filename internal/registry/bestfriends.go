package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/pkg/utils"
	"go.uber.org/zap"
)

// FriendshipChecker reports whether targetID is currently a friend of userID.
type FriendshipChecker interface {
	IsFriend(ctx context.Context, userID, targetID int64) (bool, error)
}

// BestFriends is the tagged subset of friends. Membership is checked against
// the live friends list when an id is added and never re-validated after.
type BestFriends struct {
	store   *storage.Store
	checker FriendshipChecker
	userID  int64
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewBestFriends creates the best-friends registry for userID.
func NewBestFriends(store *storage.Store, checker FriendshipChecker, userID int64, logger *zap.Logger) *BestFriends {
	return &BestFriends{
		store:   store,
		checker: checker,
		userID:  userID,
		logger:  logger.Named("best_friends"),
	}
}

// List returns the stored set in insertion order.
func (b *BestFriends) List(ctx context.Context) []string {
	ids := storage.Load(ctx, b.store, storage.BestFriends, []string{})
	if ids == nil {
		ids = []string{}
	}

	return ids
}

// Add tags id as a best friend after confirming the friendship upstream.
// Adding an id that is already tagged is a no-op. Returns the new set.
func (b *BestFriends) Add(ctx context.Context, id int64) ([]string, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ok, err := b.checker.IsFriend(ctx, b.userID, id)
	if err != nil {
		b.logger.Error("Failed to check friendship", zap.Error(err), zap.Int64("targetID", id))
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFriend, id)
	}

	key := utils.FormatID(id)

	ids := b.List(ctx)
	if slices.Contains(ids, key) {
		return ids, nil
	}

	ids = append(ids, key)
	if err := b.store.Save(ctx, storage.BestFriends, ids); err != nil {
		return nil, err
	}

	b.logger.Info("Added best friend", zap.Int64("targetID", id))

	return ids, nil
}

// Remove untags id. Returns ErrNotFound if it was not tagged.
func (b *BestFriends) Remove(ctx context.Context, id int64) ([]string, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := utils.FormatID(id)

	ids := b.List(ctx)
	idx := slices.Index(ids, key)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	ids = slices.Delete(ids, idx, idx+1)
	if err := b.store.Save(ctx, storage.BestFriends, ids); err != nil {
		return nil, err
	}

	b.logger.Info("Removed best friend", zap.Int64("targetID", id))

	return ids, nil
}
