package types

import storageTypes "github.com/robalyx/rowatch/internal/storage/types"

// Response messages.
const (
	MessageFriendsReset = "Friend tracking has been reset and synced with current friend list."
	MessageGamesReset   = "Game history reset successfully."
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResetFriendsResponse is returned after the friend history was rebuilt.
type ResetFriendsResponse struct {
	Message     string `json:"message"`
	FriendCount int    `json:"friendCount"`
}

// BestFriendsResponse is returned by best-friend mutations.
type BestFriendsResponse struct {
	Success     bool     `json:"success"`
	BestFriends []string `json:"bestFriends"`
}

// ResetGamesResponse is returned after the game history was reset.
type ResetGamesResponse struct {
	Message string                     `json:"message"`
	History []storageTypes.GameSession `json:"history"`
}

// PinnedResponse is returned by pin mutations.
type PinnedResponse struct {
	Success bool    `json:"success"`
	Pinned  []int64 `json:"pinned"`
}
