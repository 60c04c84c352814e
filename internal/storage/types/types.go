package types

import "time"

// FriendEventType is the kind of change recorded in the friend history.
type FriendEventType string

const (
	FriendAdded   FriendEventType = "added"
	FriendRemoved FriendEventType = "removed"
)

// FriendRecord is one entry of the friend snapshot.
type FriendRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Timestamp   int64  `json:"timestamp"` // Unix milliseconds of the cycle that stored the record
}

// FriendHistoryEvent is one entry of the append-only friend history.
type FriendHistoryEvent struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	DisplayName       string          `json:"displayName"`
	AvatarURL         string          `json:"avatarUrl"`
	Type              FriendEventType `json:"type"`
	Timestamp         int64           `json:"timestamp"`                   // Unix milliseconds
	TimestampReadable string          `json:"timestampReadable,omitempty"` // Only set on reset events
}

// LastSeenMap maps a user id to the RFC3339 start of its current offline period.
type LastSeenMap map[string]string

// GameSession records the first and last time the tracked user was seen in a place.
type GameSession struct {
	PlaceID   int64     `json:"placeId"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}
