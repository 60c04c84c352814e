package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robalyx/rowatch/internal/registry"
	"github.com/robalyx/rowatch/internal/rest"
	restTypes "github.com/robalyx/rowatch/internal/rest/types"
	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/internal/roblox/fetcher/fetchertest"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/internal/storage/types"
	"github.com/robalyx/rowatch/internal/worker/core"
	"github.com/robalyx/rowatch/internal/worker/friend"
	"github.com/robalyx/rowatch/internal/worker/game"
	"github.com/robalyx/rowatch/internal/worker/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const selfID = 156

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	source     *fetchertest.Fake
	friends    *friend.Tracker
	lastOnline *presence.Tracker
	handler    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := storage.New(storage.NewMemoryBackend(), logger)
	_, err := store.Init(t.Context())
	require.NoError(t, err)

	source := fetchertest.New()
	clock := func() time.Time { return now }

	friends := friend.New(store, source, selfID, logger, friend.WithClock(clock))
	lastOnline := presence.New(store, source, source, friends, selfID, logger, presence.WithClock(clock))
	games := game.New(store, source, selfID, logger, game.WithClock(clock))

	scheduler := core.NewScheduler(0, logger)
	scheduler.Add("friend_tracker", time.Minute, friends)

	handler := rest.NewServer(rest.Services{
		Friends:     friends,
		LastOnline:  lastOnline,
		BestFriends: registry.NewBestFriends(store, source, selfID, logger),
		Games:       games,
		Pinned:      registry.NewPinnedPlaces(store, logger),
		Status:      scheduler,
	}, logger)

	return &fixture{source: source, friends: friends, lastOnline: lastOnline, handler: handler}
}

func (f *fixture) do(t *testing.T, method, path string, out any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}

	return rec.Code
}

func TestEmptyDatasets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		path string
		want string
	}{
		{path: "/api/me/friend-history", want: "[]"},
		{path: "/api/me/last-online", want: "{}"},
		{path: "/api/me/best-friends", want: "[]"},
		{path: "/api/me/game-history", want: "[]"},
		{path: "/api/me/pinned-games", want: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestResetFriendHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.SetFriends(selfID, 1, 2, 3)

	var resp restTypes.ResetFriendsResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/reset-friend-history", &resp))
	assert.Equal(t, restTypes.MessageFriendsReset, resp.Message)
	assert.Equal(t, 3, resp.FriendCount)

	var history []types.FriendHistoryEvent
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/me/friend-history", &history))
	require.Len(t, history, 3)
	assert.Equal(t, types.FriendAdded, history[0].Type)
	assert.Equal(t, "2024-03-01T10:00:00Z", history[0].TimestampReadable)
}

func TestResetFriendHistoryUpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.FailFriends(fetcher.ErrUpstream)

	var resp restTypes.ErrorResponse
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodPost, "/api/reset-friend-history", &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestBestFriends(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.SetFriends(selfID, 1, 2)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantIDs    []string
	}{
		{name: "add friend", path: "/api/me/best-friends/add/1", wantStatus: http.StatusOK, wantIDs: []string{"1"}},
		{name: "add again", path: "/api/me/best-friends/add/1", wantStatus: http.StatusOK, wantIDs: []string{"1"}},
		{name: "add second", path: "/api/me/best-friends/add/2", wantStatus: http.StatusOK, wantIDs: []string{"1", "2"}},
		{name: "add non friend", path: "/api/me/best-friends/add/999", wantStatus: http.StatusForbidden},
		{name: "add bad id", path: "/api/me/best-friends/add/abc", wantStatus: http.StatusBadRequest},
		{name: "remove", path: "/api/me/best-friends/remove/1", wantStatus: http.StatusOK, wantIDs: []string{"2"}},
		{name: "remove missing", path: "/api/me/best-friends/remove/1", wantStatus: http.StatusNotFound},
	}

	// Steps build on each other, so they run in order
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

		require.Equal(t, tt.wantStatus, rec.Code, tt.name)

		if tt.wantStatus != http.StatusOK {
			var resp restTypes.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), tt.name)
			assert.NotEmpty(t, resp.Error, tt.name)

			continue
		}

		var resp restTypes.BestFriendsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), tt.name)
		assert.True(t, resp.Success, tt.name)
		assert.Equal(t, tt.wantIDs, resp.BestFriends, tt.name)
	}

	var ids []string
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/me/best-friends", &ids))
	assert.Equal(t, []string{"2"}, ids)
}

func TestBestFriendsUpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.FailFriends(fetcher.ErrUpstream)

	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodPost, "/api/me/best-friends/add/1", nil))
}

func TestGameHistoryReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.SetPresence(fetchertest.InGame(selfID, 1818))

	var resp restTypes.ResetGamesResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/me/game-history/reset", &resp))
	assert.Equal(t, restTypes.MessageGamesReset, resp.Message)
	assert.Equal(t, []types.GameSession{{PlaceID: 1818, FirstSeen: now, LastSeen: now}}, resp.History)

	var history []types.GameSession
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/me/game-history", &history))
	assert.Equal(t, resp.History, history)
}

func TestPinnedGames(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var resp restTypes.PinnedResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/me/pinned-games/pin/1818", &resp))
	assert.Equal(t, restTypes.PinnedResponse{Success: true, Pinned: []int64{1818}}, resp)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/me/pinned-games/unpin/1818", &resp))
	assert.Equal(t, restTypes.PinnedResponse{Success: true, Pinned: []int64{}}, resp)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/me/pinned-games/unpin/1818", nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/me/pinned-games/pin/0", nil))
}

func TestLastOnline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.SetFriends(selfID, 1, 2)
	f.source.SetPresence(fetchertest.Offline(1))
	f.source.SetPresence(fetchertest.Website(2))

	require.NoError(t, f.lastOnline.RunOnce(t.Context()))

	var got types.LastSeenMap
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/me/last-online", &got))
	assert.Equal(t, types.LastSeenMap{"1": "2024-03-01T10:00:00Z"}, got)
}

func TestTrackerStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var statuses []core.Status
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/me/tracker-status", &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "friend_tracker", statuses[0].Name)
	assert.Zero(t, statuses[0].Runs)
}
