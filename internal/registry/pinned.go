package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/robalyx/rowatch/internal/storage"
	"go.uber.org/zap"
)

// PinnedPlaces is an ordered list of place ids with no polling interaction.
type PinnedPlaces struct {
	store  *storage.Store
	logger *zap.Logger
	mu     sync.Mutex
}

// NewPinnedPlaces creates the pinned places list.
func NewPinnedPlaces(store *storage.Store, logger *zap.Logger) *PinnedPlaces {
	return &PinnedPlaces{
		store:  store,
		logger: logger.Named("pinned_places"),
	}
}

// Pinned returns the pinned place ids in pin order.
func (p *PinnedPlaces) Pinned(ctx context.Context) []int64 {
	ids := storage.Load(ctx, p.store, storage.PinnedGames, []int64{})
	if ids == nil {
		ids = []int64{}
	}

	return ids
}

// Pin appends placeID unless it is already pinned. Returns the new list.
func (p *PinnedPlaces) Pin(ctx context.Context, placeID int64) ([]int64, error) {
	if placeID <= 0 {
		return nil, ErrInvalidID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.Pinned(ctx)
	if slices.Contains(ids, placeID) {
		return ids, nil
	}

	ids = append(ids, placeID)
	if err := p.store.Save(ctx, storage.PinnedGames, ids); err != nil {
		return nil, err
	}

	p.logger.Debug("Pinned place", zap.Int64("placeID", placeID))

	return ids, nil
}

// Unpin removes placeID. Returns ErrNotFound if it was not pinned.
func (p *PinnedPlaces) Unpin(ctx context.Context, placeID int64) ([]int64, error) {
	if placeID <= 0 {
		return nil, ErrInvalidID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.Pinned(ctx)
	idx := slices.Index(ids, placeID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, placeID)
	}

	ids = slices.Delete(ids, idx, idx+1)
	if err := p.store.Save(ctx, storage.PinnedGames, ids); err != nil {
		return nil, err
	}

	p.logger.Debug("Unpinned place", zap.Int64("placeID", placeID))

	return ids, nil
}
