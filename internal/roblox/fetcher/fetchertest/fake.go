// Package fetchertest provides an in-memory stand-in for the Roblox fetchers.
package fetchertest

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/robalyx/rowatch/internal/roblox/fetcher"
)

// Fake serves friends and presences from memory. The zero value is not
// usable; create one with New.
type Fake struct {
	mu            sync.Mutex
	friends       map[int64][]fetcher.Friend
	presences     map[int64]fetcher.Presence
	friendsErr    error
	presenceErr   error
	friendCalls   int
	presenceCalls int
	presenceIDs   [][]int64
	hook          func()
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		friends:   make(map[int64][]fetcher.Friend),
		presences: make(map[int64]fetcher.Presence),
	}
}

// SetFriends replaces the friends list of userID.
func (f *Fake) SetFriends(userID int64, ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]fetcher.Friend, 0, len(ids))
	for _, id := range ids {
		list = append(list, Friend(id))
	}

	f.friends[userID] = list
}

// SetPresence stores the presence returned for p.UserID.
func (f *Fake) SetPresence(p fetcher.Presence) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.presences[p.UserID] = p
}

// ClearPresence makes the fake omit userID from presence responses.
func (f *Fake) ClearPresence(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.presences, userID)
}

// FailFriends makes friend calls return err until reset with nil.
func (f *Fake) FailFriends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.friendsErr = err
}

// FailPresence makes presence calls return err until reset with nil.
func (f *Fake) FailPresence(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.presenceErr = err
}

// OnCall registers a function run at the start of every call, outside the lock.
func (f *Fake) OnCall(hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hook = hook
}

// FriendCalls returns how many friend-list calls were made.
func (f *Fake) FriendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.friendCalls
}

// PresenceCalls returns how many presence calls were made.
func (f *Fake) PresenceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.presenceCalls
}

// PresenceRequests returns the id lists passed to FetchPresences.
func (f *Fake) PresenceRequests() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.presenceIDs)
}

func (f *Fake) runHook() {
	f.mu.Lock()
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// GetFriends implements the friend source.
func (f *Fake) GetFriends(_ context.Context, userID int64) ([]fetcher.Friend, error) {
	f.runHook()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.friendCalls++

	if f.friendsErr != nil {
		return nil, f.friendsErr
	}

	return slices.Clone(f.friends[userID]), nil
}

// GetFriendIDs implements the friend source.
func (f *Fake) GetFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	friends, err := f.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(friends))
	for _, friend := range friends {
		ids = append(ids, friend.ID)
	}

	return ids, nil
}

// IsFriend implements the friendship checker.
func (f *Fake) IsFriend(ctx context.Context, userID, targetID int64) (bool, error) {
	ids, err := f.GetFriendIDs(ctx, userID)
	if err != nil {
		return false, err
	}

	return slices.Contains(ids, targetID), nil
}

// FetchPresences implements the presence source.
func (f *Fake) FetchPresences(_ context.Context, userIDs []int64) ([]fetcher.Presence, error) {
	f.runHook()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.presenceCalls++
	f.presenceIDs = append(f.presenceIDs, slices.Clone(userIDs))

	if f.presenceErr != nil {
		return nil, f.presenceErr
	}

	result := make([]fetcher.Presence, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := f.presences[id]; ok {
			result = append(result, p)
		}
	}

	return result, nil
}

// FetchPresence implements the presence source.
func (f *Fake) FetchPresence(ctx context.Context, userID int64) (fetcher.Presence, bool, error) {
	presences, err := f.FetchPresences(ctx, []int64{userID})
	if err != nil || len(presences) == 0 {
		return fetcher.Presence{}, false, err
	}

	return presences[0], true, nil
}

// Friend builds a Friend with generated names.
func Friend(id int64) fetcher.Friend {
	return fetcher.Friend{
		ID:          id,
		Name:        "user" + strconv.FormatInt(id, 10),
		DisplayName: "User " + strconv.FormatInt(id, 10),
		AvatarURL:   fetcher.AvatarURL(id),
	}
}

// Offline builds an offline presence.
func Offline(userID int64) fetcher.Presence {
	return fetcher.Presence{UserID: userID, Type: fetcher.PresenceOffline}
}

// Website builds an online website presence.
func Website(userID int64) fetcher.Presence {
	return fetcher.Presence{UserID: userID, Type: fetcher.PresenceWebsite, LastLocation: "Website"}
}

// InGame builds an in-game presence at placeID.
func InGame(userID, placeID int64) fetcher.Presence {
	return fetcher.Presence{UserID: userID, Type: fetcher.PresenceInGame, PlaceID: &placeID}
}
