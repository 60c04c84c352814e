package pacer_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/robalyx/rowatch/internal/setup/client/interceptor/pacer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNormalizedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "Friends endpoint", path: "/v1/users/123456/friends/find", expected: "/v1/users/{id}/friends/find"},
		{name: "Multiple numeric IDs", path: "/users/123/friends/456/789", expected: "/users/{id}/friends/{id}/{id}"},
		{name: "Path with no IDs", path: "/v1/presence/users", expected: "/v1/presence/users"},
		{name: "Path with non-numeric segments", path: "/users/abc123/profile", expected: "/users/abc123/profile"},
		{name: "Empty path", path: "", expected: ""},
		{name: "Root path", path: "/", expected: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, pacer.GetNormalizedPath(tt.path))
		})
	}
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("passes requests through within burst", func(t *testing.T) {
		t.Parallel()

		m := pacer.New(1000, 3)
		calls := 0
		next := func(_ context.Context, _ *http.Client, _ *http.Request) (*http.Response, error) {
			calls++
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		for range 3 {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://friends.roblox.com/v1/users/1/friends/find", nil)
			require.NoError(t, err)

			resp, err := m.Process(t.Context(), http.DefaultClient, req, next)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}

		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		t.Parallel()

		m := pacer.New(0.001, 1)
		next := func(_ context.Context, _ *http.Client, _ *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://presence.roblox.com/v1/presence/users", nil)
		require.NoError(t, err)

		_, err = m.Process(t.Context(), http.DefaultClient, req, next)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err = m.Process(ctx, http.DefaultClient, req, next)
		require.Error(t, err)
	})

	t.Run("hosts have separate buckets", func(t *testing.T) {
		t.Parallel()

		m := pacer.New(0.001, 1)
		next := func(_ context.Context, _ *http.Client, _ *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK}, nil
		}

		for _, host := range []string{"friends.roblox.com", "presence.roblox.com", "users.roblox.com"} {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://"+host+"/v1", nil)
			require.NoError(t, err)

			_, err = m.Process(t.Context(), http.DefaultClient, req, next)
			require.NoError(t, err)
		}
	})
}
