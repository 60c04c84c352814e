package fetcher

import (
	"errors"
	"fmt"
)

// ErrUpstream wraps every failure talking to the Roblox API.
var ErrUpstream = errors.New("upstream request failed")

const (
	// BatchSize is the most ids a single users request accepts.
	BatchSize = 100
	// PresenceBatchSize is the most ids the presence client validates per request.
	PresenceBatchSize = 50
)

// AvatarURL returns the headshot thumbnail redirect URL for a user.
func AvatarURL(userID int64) string {
	return fmt.Sprintf("https://www.roblox.com/headshot-thumbnail/image?userId=%d&width=100&height=100&format=png", userID)
}

// Friend is a friend of the tracked user with resolved names.
type Friend struct {
	ID          int64
	Name        string
	DisplayName string
	AvatarURL   string
}

// PresenceType is the normalized online state of a user.
type PresenceType int

const (
	PresenceOffline PresenceType = iota
	PresenceWebsite
	PresenceInGame
	PresenceStudio
)

// String returns the presence type name.
func (p PresenceType) String() string {
	switch p {
	case PresenceOffline:
		return "offline"
	case PresenceWebsite:
		return "online-website"
	case PresenceInGame:
		return "online-ingame"
	case PresenceStudio:
		return "online-studio"
	default:
		return fmt.Sprintf("PresenceType(%d)", int(p))
	}
}

// Online reports whether the user is online in any form.
func (p PresenceType) Online() bool {
	return p != PresenceOffline
}

// Presence is a normalized presence record.
type Presence struct {
	UserID       int64
	Type         PresenceType
	PlaceID      *int64
	GameID       *string
	LastLocation string
}

// NormalizePresence maps a raw presence code to a PresenceType.
// Codes 0 to 3 map directly. Unknown codes fall back to in-game when a
// place id is known and offline otherwise.
func NormalizePresence(code int, placeID *int64) PresenceType {
	switch code {
	case 0:
		return PresenceOffline
	case 1:
		return PresenceWebsite
	case 2:
		return PresenceInGame
	case 3:
		return PresenceStudio
	}

	if placeID != nil && *placeID != 0 {
		return PresenceInGame
	}

	return PresenceOffline
}

// chunk splits ids into consecutive batches of at most size.
func chunk(ids []int64, size int) [][]int64 {
	batches := make([][]int64, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		batches = append(batches, ids[i:min(i+size, len(ids))])
	}

	return batches
}

func upstreamError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// apiIDs converts ids to the unsigned form the API client takes.
func apiIDs(ids []int64) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id) //nolint:gosec // ids are validated positive
	}

	return out
}

// optionalID converts an optional API id, mapping nil to nil.
func optionalID(id *uint64) *int64 {
	if id == nil {
		return nil
	}

	v := int64(*id) //nolint:gosec // Roblox ids fit in int64

	return &v
}
