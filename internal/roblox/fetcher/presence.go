package fetcher

import (
	"context"
	"sync"

	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/jaxron/roapi.go/pkg/api/middleware/auth"
	"github.com/jaxron/roapi.go/pkg/api/resources/presence"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// PresenceFetcher handles retrieval of user presence information from the Roblox API.
type PresenceFetcher struct {
	roAPI  *api.API
	logger *zap.Logger
}

// NewPresenceFetcher creates a PresenceFetcher.
func NewPresenceFetcher(roAPI *api.API, logger *zap.Logger) *PresenceFetcher {
	return &PresenceFetcher{
		roAPI:  roAPI,
		logger: logger.Named("presence_fetcher"),
	}
}

// FetchPresences retrieves presence information for the given users.
// Batches run concurrently and any failed batch fails the whole call.
func (p *PresenceFetcher) FetchPresences(ctx context.Context, userIDs []int64) ([]Presence, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ctx = context.WithValue(ctx, auth.KeyAddCookie, true)

	var (
		allPresences = make([]Presence, 0, len(userIDs))
		pl           = pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
		mu           sync.Mutex
	)

	for _, batchIDs := range chunk(userIDs, PresenceBatchSize) {
		pl.Go(func(ctx context.Context) error {
			params := presence.NewUserPresencesBuilder(apiIDs(batchIDs)...).Build()

			presences, err := p.roAPI.Presence().GetUserPresences(ctx, params)
			if err != nil {
				p.logger.Error("Error fetching user presences",
					zap.Error(err),
					zap.Int("batchSize", len(batchIDs)))

				return upstreamError("user presences", err)
			}

			batch := make([]Presence, 0, len(presences.UserPresences))
			for _, raw := range presences.UserPresences {
				placeID := optionalID(raw.PlaceID)
				batch = append(batch, Presence{
					UserID:       int64(raw.UserID), //nolint:gosec // Roblox ids fit in int64
					Type:         NormalizePresence(int(raw.UserPresenceType), placeID),
					PlaceID:      placeID,
					GameID:       raw.GameID,
					LastLocation: raw.LastLocation,
				})
			}

			mu.Lock()
			allPresences = append(allPresences, batch...)
			mu.Unlock()

			return nil
		})
	}

	if err := pl.Wait(); err != nil {
		return nil, err
	}

	p.logger.Debug("Finished fetching user presences",
		zap.Int("totalRequested", len(userIDs)),
		zap.Int("successfulFetches", len(allPresences)))

	return allPresences, nil
}

// FetchPresence retrieves the presence of a single user.
// The second return is false when the API returned no record for the user.
func (p *PresenceFetcher) FetchPresence(ctx context.Context, userID int64) (Presence, bool, error) {
	presences, err := p.FetchPresences(ctx, []int64{userID})
	if err != nil {
		return Presence{}, false, err
	}

	for _, record := range presences {
		if record.UserID == userID {
			return record, true, nil
		}
	}

	return Presence{}, false, nil
}
