package handler

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/robalyx/rowatch/internal/registry"
	"github.com/robalyx/rowatch/internal/rest/types"
	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/pkg/utils"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// writeError writes an ErrorResponse with the given status.
func writeError(w http.ResponseWriter, status int, message string) error {
	body, err := sonic.Marshal(types.ErrorResponse{Error: message})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)

	return err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFriend):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fetcher.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes the status mapped from err. Client errors carry the
// error text, server and upstream failures are logged and carry message.
func writeFailure(w http.ResponseWriter, logger *zap.Logger, message string, err error) error {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		return writeError(w, status, err.Error())
	}

	logger.Error(message, zap.Error(err))

	return writeError(w, status, message)
}

// paramID parses the :id route parameter.
func paramID(req bunrouter.Request) (int64, error) {
	return utils.ParseID(req.Param("id"))
}
