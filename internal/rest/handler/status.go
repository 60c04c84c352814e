package handler

import (
	"net/http"

	"github.com/robalyx/rowatch/internal/worker/core"
	"github.com/uptrace/bunrouter"
)

// StatusSource reports the state of every scheduled tracker.
type StatusSource interface {
	Status() []core.Status
}

// StatusHandler handles the tracker status endpoint.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// GetStatus returns the run counters of every tracker.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, _ bunrouter.Request) error {
	return bunrouter.JSON(w, h.source.Status())
}
