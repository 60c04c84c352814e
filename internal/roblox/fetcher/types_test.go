package fetcher_test

import (
	"testing"

	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNormalizePresence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		code     int
		placeID  *int64
		expected fetcher.PresenceType
	}{
		{name: "offline", code: 0, expected: fetcher.PresenceOffline},
		{name: "website", code: 1, expected: fetcher.PresenceWebsite},
		{name: "in game", code: 2, placeID: int64Ptr(606849621), expected: fetcher.PresenceInGame},
		{name: "in game without place", code: 2, expected: fetcher.PresenceInGame},
		{name: "studio", code: 3, expected: fetcher.PresenceStudio},
		{name: "unknown code with place", code: 4, placeID: int64Ptr(1818), expected: fetcher.PresenceInGame},
		{name: "unknown code with zero place", code: 4, placeID: int64Ptr(0), expected: fetcher.PresenceOffline},
		{name: "unknown code without place", code: -1, expected: fetcher.PresenceOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, fetcher.NormalizePresence(tt.code, tt.placeID))
		})
	}
}

func TestPresenceType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "offline", fetcher.PresenceOffline.String())
	assert.Equal(t, "online-ingame", fetcher.PresenceInGame.String())
	assert.Equal(t, "PresenceType(9)", fetcher.PresenceType(9).String())

	assert.False(t, fetcher.PresenceOffline.Online())
	assert.True(t, fetcher.PresenceWebsite.Online())
	assert.True(t, fetcher.PresenceStudio.Online())
}

func TestAvatarURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://www.roblox.com/headshot-thumbnail/image?userId=156&width=100&height=100&format=png",
		fetcher.AvatarURL(156))
}
