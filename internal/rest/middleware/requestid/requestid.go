package requestid

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

type requestIDCtxKey struct{}

// FromContext retrieves the request id from context.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return id
	}

	return ""
}

// Middleware tags every request with an id and logs its completion.
type Middleware struct {
	logger *zap.Logger
}

// New creates a new request id middleware.
func New(logger *zap.Logger) *Middleware {
	return &Middleware{
		logger: logger,
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler. An incoming
// X-Request-ID is kept, otherwise a new one is generated.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		id := req.Header.Get(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		w.Header().Set(Header, id)

		start := time.Now()
		err := next(w, req.WithContext(context.WithValue(req.Context(), requestIDCtxKey{}, id)))

		m.logger.Debug("Handled request",
			zap.String("requestID", id),
			zap.String("method", req.Method),
			zap.String("route", req.Route()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))

		return err
	}
}
