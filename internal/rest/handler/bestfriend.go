package handler

import (
	"context"
	"net/http"

	restTypes "github.com/robalyx/rowatch/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// BestFriendService manages the best-friends set.
type BestFriendService interface {
	List(ctx context.Context) []string
	Add(ctx context.Context, id int64) ([]string, error)
	Remove(ctx context.Context, id int64) ([]string, error)
}

// BestFriendHandler handles best-friend endpoints.
type BestFriendHandler struct {
	bestFriends BestFriendService
	logger      *zap.Logger
}

// NewBestFriendHandler creates a new best-friend handler.
func NewBestFriendHandler(bestFriends BestFriendService, logger *zap.Logger) *BestFriendHandler {
	return &BestFriendHandler{
		bestFriends: bestFriends,
		logger:      logger,
	}
}

// List returns the best-friend ids in insertion order.
func (h *BestFriendHandler) List(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.bestFriends.List(req.Context()))
}

// Add tags a current friend as best friend.
func (h *BestFriendHandler) Add(w http.ResponseWriter, req bunrouter.Request) error {
	return h.mutate(w, req, "Failed to add best friend", h.bestFriends.Add)
}

// Remove untags a best friend.
func (h *BestFriendHandler) Remove(w http.ResponseWriter, req bunrouter.Request) error {
	return h.mutate(w, req, "Failed to remove best friend", h.bestFriends.Remove)
}

func (h *BestFriendHandler) mutate(
	w http.ResponseWriter, req bunrouter.Request, message string,
	op func(ctx context.Context, id int64) ([]string, error),
) error {
	id, err := paramID(req)
	if err != nil {
		return writeFailure(w, h.logger, message, err)
	}

	ids, err := op(req.Context(), id)
	if err != nil {
		return writeFailure(w, h.logger, message, err)
	}

	return bunrouter.JSON(w, restTypes.BestFriendsResponse{
		Success:     true,
		BestFriends: ids,
	})
}
