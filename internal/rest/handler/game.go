package handler

import (
	"context"
	"net/http"

	restTypes "github.com/robalyx/rowatch/internal/rest/types"
	"github.com/robalyx/rowatch/internal/storage/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// GameService exposes the visited-places history.
type GameService interface {
	History(ctx context.Context) []types.GameSession
	Reset(ctx context.Context) ([]types.GameSession, error)
}

// PinnedService manages the pinned places list.
type PinnedService interface {
	Pinned(ctx context.Context) []int64
	Pin(ctx context.Context, placeID int64) ([]int64, error)
	Unpin(ctx context.Context, placeID int64) ([]int64, error)
}

// GameHandler handles game history and pinned place endpoints.
type GameHandler struct {
	games  GameService
	pinned PinnedService
	logger *zap.Logger
}

// NewGameHandler creates a new game handler.
func NewGameHandler(games GameService, pinned PinnedService, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		games:  games,
		pinned: pinned,
		logger: logger,
	}
}

// GetHistory returns every visited place in first-seen order.
func (h *GameHandler) GetHistory(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.games.History(req.Context()))
}

// Reset clears the history, keeping the current place if the user is in one.
func (h *GameHandler) Reset(w http.ResponseWriter, req bunrouter.Request) error {
	history, err := h.games.Reset(req.Context())
	if err != nil {
		return writeFailure(w, h.logger, "Failed to reset game history", err)
	}

	return bunrouter.JSON(w, restTypes.ResetGamesResponse{
		Message: restTypes.MessageGamesReset,
		History: history,
	})
}

// GetPinned returns the pinned place ids.
func (h *GameHandler) GetPinned(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.pinned.Pinned(req.Context()))
}

// Pin adds a place to the pinned list.
func (h *GameHandler) Pin(w http.ResponseWriter, req bunrouter.Request) error {
	return h.mutatePinned(w, req, "Failed to pin game", h.pinned.Pin)
}

// Unpin removes a place from the pinned list.
func (h *GameHandler) Unpin(w http.ResponseWriter, req bunrouter.Request) error {
	return h.mutatePinned(w, req, "Failed to unpin game", h.pinned.Unpin)
}

func (h *GameHandler) mutatePinned(
	w http.ResponseWriter, req bunrouter.Request, message string,
	op func(ctx context.Context, placeID int64) ([]int64, error),
) error {
	placeID, err := paramID(req)
	if err != nil {
		return writeFailure(w, h.logger, message, err)
	}

	ids, err := op(req.Context(), placeID)
	if err != nil {
		return writeFailure(w, h.logger, message, err)
	}

	return bunrouter.JSON(w, restTypes.PinnedResponse{
		Success: true,
		Pinned:  ids,
	})
}
