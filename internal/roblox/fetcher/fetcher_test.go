package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const upstreamHostHeader = "X-Upstream-Host"

// redirect sends every upstream request to a local test server, remembering
// the Roblox host it was meant for.
type redirect struct {
	target *url.URL
}

func (r *redirect) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	req.Header.Set(upstreamHostHeader, req.URL.Host)
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = ""

	return next(ctx, httpClient, req)
}

func (r *redirect) SetLogger(_ logger.Logger) {}

// upstream serves the friends, users and presence endpoints from fixture data.
type upstream struct {
	api *api.API

	// pages maps a cursor to the raw friends page body; unknown cursors fail.
	pages map[string]string
	// dropped ids are left out of users responses.
	dropped map[int64]bool
	// a users batch containing failUser fails.
	failUser int64
	// a presence batch containing failPresence fails.
	failPresence int64
	// absent ids are left out of presence responses.
	absent map[int64]bool

	mu              sync.Mutex
	friendPaths     []string
	userBatches     [][]int64
	presenceBatches [][]int64
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{
		pages:   make(map[string]string),
		dropped: make(map[int64]bool),
		absent:  make(map[int64]bool),
	}

	srv := httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	u.api = api.New([]string{"test-cookie"},
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithMiddleware(&redirect{target: target}),
	)

	return u
}

func (u *upstream) friends() *fetcher.FriendFetcher {
	return fetcher.NewFriendFetcher(u.api, zap.NewNop())
}

func (u *upstream) presences() *fetcher.PresenceFetcher {
	return fetcher.NewPresenceFetcher(u.api, zap.NewNop())
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	switch r.Header.Get(upstreamHostHeader) {
	case "friends.roblox.com":
		u.serveFriends(w, r)
	case "users.roblox.com":
		u.serveUsers(w, r)
	case "presence.roblox.com":
		u.servePresence(w, r)
	default:
		fail(w)
	}
}

func (u *upstream) serveFriends(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.friendPaths = append(u.friendPaths, r.URL.Path)
	u.mu.Unlock()

	body, ok := u.pages[r.URL.Query().Get("cursor")]
	if !ok {
		fail(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

type idsRequest struct {
	UserIDs []int64 `json:"userIds"`
}

type userRecord struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	HasVerifiedBadge bool   `json:"hasVerifiedBadge"`
}

type presenceRecord struct {
	UserPresenceType int     `json:"userPresenceType"`
	LastLocation     string  `json:"lastLocation"`
	PlaceID          *int64  `json:"placeId"`
	GameID           *string `json:"gameId"`
	UserID           int64   `json:"userId"`
}

func (u *upstream) serveUsers(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w)
		return
	}

	u.mu.Lock()
	u.userBatches = append(u.userBatches, req.UserIDs)
	u.mu.Unlock()

	if slices.Contains(req.UserIDs, u.failUser) {
		fail(w)
		return
	}

	data := make([]userRecord, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if u.dropped[id] {
			continue
		}

		data = append(data, userRecord{
			ID:          id,
			Name:        fmt.Sprintf("user%d", id),
			DisplayName: fmt.Sprintf("User %d", id),
		})
	}

	respond(w, map[string]any{"data": data})
}

// servePresence reports id%4 as the presence type; in-game users sit in place id*10.
func (u *upstream) servePresence(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w)
		return
	}

	u.mu.Lock()
	u.presenceBatches = append(u.presenceBatches, req.UserIDs)
	u.mu.Unlock()

	if slices.Contains(req.UserIDs, u.failPresence) {
		fail(w)
		return
	}

	records := make([]presenceRecord, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if u.absent[id] {
			continue
		}

		record := presenceRecord{UserID: id, UserPresenceType: int(id % 4)}
		if record.UserPresenceType == 2 {
			placeID := id * 10
			gameID := fmt.Sprintf("game-%d", id)
			record.PlaceID = &placeID
			record.GameID = &gameID
			record.LastLocation = "Natural Disaster Survival"
		}

		records = append(records, record)
	}

	respond(w, map[string]any{"userPresences": records})
}

func (u *upstream) friendRequests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return slices.Clone(u.friendPaths)
}

func (u *upstream) presenceRequests() [][]int64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return slices.Clone(u.presenceBatches)
}

func respond(w http.ResponseWriter, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		fail(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func fail(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"errors":[{"code":0,"message":"InternalServerError"}]}`))
}

// page renders a friends page; next is the raw JSON value of nextCursor.
func page(next string, ids ...int64) string {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = fmt.Sprintf(`{"id":%d,"hasVerifiedBadge":false}`, id)
	}

	return fmt.Sprintf(`{"previousCursor":null,"nextCursor":%s,"pageItems":[%s],"hasMore":false}`,
		next, strings.Join(items, ","))
}

func idRange(from, to int64) []int64 {
	ids := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}

	return ids
}

func TestGetFriendIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pages    map[string]string
		expected []int64
		requests int
	}{
		{
			name:     "single page with null cursor",
			pages:    map[string]string{"": page("null", 3, 1, 2)},
			expected: []int64{3, 1, 2},
			requests: 1,
		},
		{
			name: "stops on empty cursor",
			pages: map[string]string{
				"":   page(`"c2"`, 1, 2),
				"c2": page(`""`, 3),
			},
			expected: []int64{1, 2, 3},
			requests: 2,
		},
		{
			name: "stops on missing cursor",
			pages: map[string]string{
				"":   page(`"c2"`, 1),
				"c2": `{"pageItems":[{"id":2}]}`,
			},
			expected: []int64{1, 2},
			requests: 2,
		},
		{
			name: "ids repeated across pages are kept once",
			pages: map[string]string{
				"":   page(`"c2"`, 1, 2),
				"c2": page(`"c3"`, 2, 3),
				"c3": page("null", 1, 4),
			},
			expected: []int64{1, 2, 3, 4},
			requests: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := newUpstream(t)
			u.pages = tt.pages

			ids, err := u.friends().GetFriendIDs(t.Context(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)

			paths := u.friendRequests()
			assert.Len(t, paths, tt.requests)
			for _, path := range paths {
				assert.Equal(t, "/v1/users/42/friends/find", path)
			}
		})
	}
}

func TestFriendFetcherFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(u *upstream)
		call  func(ctx context.Context, f *fetcher.FriendFetcher) error
	}{
		{
			name:  "first friends page fails",
			setup: func(_ *upstream) {},
			call: func(ctx context.Context, f *fetcher.FriendFetcher) error {
				_, err := f.GetFriendIDs(ctx, 42)
				return err
			},
		},
		{
			name: "later friends page fails",
			setup: func(u *upstream) {
				u.pages[""] = page(`"missing"`, 1, 2)
			},
			call: func(ctx context.Context, f *fetcher.FriendFetcher) error {
				_, err := f.GetFriends(ctx, 42)
				return err
			},
		},
		{
			name: "membership check fails",
			setup: func(u *upstream) {
				u.pages[""] = page(`"missing"`, 1)
			},
			call: func(ctx context.Context, f *fetcher.FriendFetcher) error {
				_, err := f.IsFriend(ctx, 42, 1)
				return err
			},
		},
		{
			name: "one users batch fails",
			setup: func(u *upstream) {
				u.pages[""] = page("null", idRange(1, 150)...)
				u.failUser = 120
			},
			call: func(ctx context.Context, f *fetcher.FriendFetcher) error {
				friends, err := f.GetFriends(ctx, 42)
				if friends != nil {
					return fmt.Errorf("partial result of %d friends", len(friends))
				}
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := newUpstream(t)
			tt.setup(u)

			err := tt.call(t.Context(), u.friends())
			require.ErrorIs(t, err, fetcher.ErrUpstream)
		})
	}
}

func TestGetFriends(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	u.pages[""] = page(`"c2"`, idRange(1, 100)...)
	u.pages["c2"] = page("null", idRange(101, 150)...)
	u.dropped[7] = true
	u.dropped[133] = true

	friends, err := u.friends().GetFriends(t.Context(), 42)
	require.NoError(t, err)
	require.Len(t, friends, 150)

	for i, friend := range friends {
		id := int64(i + 1)
		assert.Equal(t, id, friend.ID)
		assert.Equal(t, fetcher.AvatarURL(id), friend.AvatarURL)

		if u.dropped[id] {
			assert.Empty(t, friend.Name)
			assert.Empty(t, friend.DisplayName)
			continue
		}

		assert.Equal(t, fmt.Sprintf("user%d", id), friend.Name)
		assert.Equal(t, fmt.Sprintf("User %d", id), friend.DisplayName)
	}

	u.mu.Lock()
	batches := slices.Clone(u.userBatches)
	u.mu.Unlock()

	require.Len(t, batches, 2)
	for _, batch := range batches {
		assert.LessOrEqual(t, len(batch), fetcher.BatchSize)
	}

	ok, err := u.friends().IsFriend(t.Context(), 42, 133)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = u.friends().IsFriend(t.Context(), 42, 151)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchPresences(t *testing.T) {
	t.Parallel()

	t.Run("batches and normalizes", func(t *testing.T) {
		t.Parallel()

		u := newUpstream(t)
		ids := idRange(1, 120)

		presences, err := u.presences().FetchPresences(t.Context(), ids)
		require.NoError(t, err)
		require.Len(t, presences, len(ids))

		byID := make(map[int64]fetcher.Presence, len(presences))
		for _, p := range presences {
			byID[p.UserID] = p
		}

		expected := []fetcher.PresenceType{
			fetcher.PresenceOffline, fetcher.PresenceWebsite, fetcher.PresenceInGame, fetcher.PresenceStudio,
		}
		for _, id := range ids {
			p, ok := byID[id]
			require.True(t, ok, "missing presence for %d", id)
			assert.Equal(t, expected[id%4], p.Type)

			if p.Type == fetcher.PresenceInGame {
				require.NotNil(t, p.PlaceID)
				assert.Equal(t, id*10, *p.PlaceID)
				require.NotNil(t, p.GameID)
				assert.Equal(t, fmt.Sprintf("game-%d", id), *p.GameID)
				assert.Equal(t, "Natural Disaster Survival", p.LastLocation)
			} else {
				assert.Nil(t, p.PlaceID)
				assert.Nil(t, p.GameID)
			}
		}

		batches := u.presenceRequests()
		require.Len(t, batches, 3)
		var seen []int64
		for _, batch := range batches {
			assert.LessOrEqual(t, len(batch), fetcher.PresenceBatchSize)
			seen = append(seen, batch...)
		}
		slices.Sort(seen)
		assert.Equal(t, ids, seen)
	})

	t.Run("one failed batch fails the call", func(t *testing.T) {
		t.Parallel()

		u := newUpstream(t)
		u.failPresence = 99

		presences, err := u.presences().FetchPresences(t.Context(), idRange(1, 120))
		require.ErrorIs(t, err, fetcher.ErrUpstream)
		assert.Nil(t, presences)
	})

	t.Run("no ids makes no request", func(t *testing.T) {
		t.Parallel()

		u := newUpstream(t)

		presences, err := u.presences().FetchPresences(t.Context(), nil)
		require.NoError(t, err)
		assert.Empty(t, presences)
		assert.Empty(t, u.presenceRequests())
	})
}

func TestFetchPresence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userID   int64
		absent   bool
		fail     bool
		found    bool
		expected fetcher.PresenceType
	}{
		{name: "in game", userID: 6, found: true, expected: fetcher.PresenceInGame},
		{name: "offline", userID: 8, found: true, expected: fetcher.PresenceOffline},
		{name: "no record returned", userID: 5, absent: true},
		{name: "upstream failure", userID: 9, fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := newUpstream(t)
			u.absent[tt.userID] = tt.absent
			if tt.fail {
				u.failPresence = tt.userID
			}

			p, found, err := u.presences().FetchPresence(t.Context(), tt.userID)
			if tt.fail {
				require.ErrorIs(t, err, fetcher.ErrUpstream)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.userID, p.UserID)
				assert.Equal(t, tt.expected, p.Type)
			}
		})
	}
}
