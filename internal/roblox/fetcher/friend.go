package fetcher

import (
	"context"
	"slices"
	"sync"

	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/jaxron/roapi.go/pkg/api/middleware/auth"
	"github.com/jaxron/roapi.go/pkg/api/resources/friends"
	"github.com/jaxron/roapi.go/pkg/api/resources/users"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// FriendFetcher handles retrieval of friend lists from the Roblox API.
type FriendFetcher struct {
	roAPI  *api.API
	logger *zap.Logger
}

// NewFriendFetcher creates a FriendFetcher with the provided API client and logger.
func NewFriendFetcher(roAPI *api.API, logger *zap.Logger) *FriendFetcher {
	return &FriendFetcher{
		roAPI:  roAPI,
		logger: logger.Named("friend_fetcher"),
	}
}

// GetFriendIDs returns the friend IDs for a user in the order the API lists them.
func (f *FriendFetcher) GetFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	ctx = context.WithValue(ctx, auth.KeyAddCookie, true)

	var (
		friendIDs []int64
		seen      = make(map[int64]struct{})
		cursor    string
	)

	for {
		builder := friends.NewFindFriendsBuilder(uint64(userID)). //nolint:gosec // ids are positive
			WithLimit(50)

		if cursor != "" {
			builder.WithCursor(cursor)
		}

		response, err := f.roAPI.Friends().FindFriends(ctx, builder.Build())
		if err != nil {
			return nil, upstreamError("find friends", err)
		}

		// Pages can overlap while the list changes; an id is kept once
		for _, friend := range response.PageItems {
			id := int64(friend.ID) //nolint:gosec // Roblox ids fit in int64
			if id == 0 {
				continue
			}

			if _, ok := seen[id]; ok {
				continue
			}

			seen[id] = struct{}{}
			friendIDs = append(friendIDs, id)
		}

		if response.NextCursor == nil || *response.NextCursor == "" {
			break
		}

		cursor = *response.NextCursor
	}

	return friendIDs, nil
}

// GetFriends returns a user's friends with names resolved.
// Any failed page or name batch fails the whole call.
func (f *FriendFetcher) GetFriends(ctx context.Context, userID int64) ([]Friend, error) {
	friendIDs, err := f.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		resolved = make(map[int64]Friend, len(friendIDs))
		p        = pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
		mu       sync.Mutex
	)

	for _, batchIDs := range chunk(friendIDs, BatchSize) {
		p.Go(func(ctx context.Context) error {
			userDetails, err := f.roAPI.Users().GetUsersByIDs(ctx, users.NewUsersByIDsBuilder(apiIDs(batchIDs)...).Build())
			if err != nil {
				f.logger.Error("Failed to fetch user details",
					zap.Error(err),
					zap.Int("batchSize", len(batchIDs)))

				return upstreamError("users by ids", err)
			}

			mu.Lock()
			defer mu.Unlock()

			for _, user := range userDetails.Data {
				id := int64(user.ID) //nolint:gosec // Roblox ids fit in int64
				resolved[id] = Friend{
					ID:          id,
					Name:        user.Name,
					DisplayName: user.DisplayName,
					AvatarURL:   AvatarURL(id),
				}
			}

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	// Keep the friends-list order; ids the users endpoint dropped keep an empty name
	result := make([]Friend, 0, len(friendIDs))
	for _, id := range friendIDs {
		friend, ok := resolved[id]
		if !ok {
			friend = Friend{ID: id, AvatarURL: AvatarURL(id)}
		}

		result = append(result, friend)
	}

	f.logger.Debug("Finished fetching friends",
		zap.Int64("userID", userID),
		zap.Int("totalFriends", len(friendIDs)),
		zap.Int("resolvedNames", len(resolved)))

	return result, nil
}

// IsFriend reports whether targetID is currently on userID's friends list.
func (f *FriendFetcher) IsFriend(ctx context.Context, userID, targetID int64) (bool, error) {
	friendIDs, err := f.GetFriendIDs(ctx, userID)
	if err != nil {
		return false, err
	}

	return slices.Contains(friendIDs, targetID), nil
}
