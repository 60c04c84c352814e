package handler

import (
	"context"
	"net/http"

	restTypes "github.com/robalyx/rowatch/internal/rest/types"
	"github.com/robalyx/rowatch/internal/storage/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// FriendService exposes the friend change log.
type FriendService interface {
	History(ctx context.Context) []types.FriendHistoryEvent
	Reset(ctx context.Context) (int, error)
}

// LastOnlineService exposes the last-online map.
type LastOnlineService interface {
	LastOnline(ctx context.Context) types.LastSeenMap
}

// FriendHandler handles friend history and presence endpoints.
type FriendHandler struct {
	friends    FriendService
	lastOnline LastOnlineService
	logger     *zap.Logger
}

// NewFriendHandler creates a new friend handler.
func NewFriendHandler(friends FriendService, lastOnline LastOnlineService, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{
		friends:    friends,
		lastOnline: lastOnline,
		logger:     logger,
	}
}

// GetHistory returns the friend change log, oldest first.
func (h *FriendHandler) GetHistory(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.friends.History(req.Context()))
}

// Reset rebuilds the friend history from the current friends list.
func (h *FriendHandler) Reset(w http.ResponseWriter, req bunrouter.Request) error {
	count, err := h.friends.Reset(req.Context())
	if err != nil {
		return writeFailure(w, h.logger, "Failed to reset friend history", err)
	}

	return bunrouter.JSON(w, restTypes.ResetFriendsResponse{
		Message:     restTypes.MessageFriendsReset,
		FriendCount: count,
	})
}

// GetLastOnline returns the map of offline friends to the start of their offline period.
func (h *FriendHandler) GetLastOnline(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.lastOnline.LastOnline(req.Context()))
}
