package pacer

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"golang.org/x/time/rate"
)

// NumericIDPattern matches any sequence of digits for path normalization.
var NumericIDPattern = regexp.MustCompile(`^\d+$`)

// Middleware spaces out upstream requests with one token bucket per host.
// Requests that would exceed the bucket wait until a token is available or
// their context is cancelled.
type Middleware struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	logger   logger.Logger
}

// New creates a new Middleware allowing rps sustained requests per host with the given burst.
func New(rps float64, burst int) *Middleware {
	if burst < 1 {
		burst = 1
	}

	return &Middleware{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   &logger.NoOpLogger{},
	}
}

// Process waits for the host's limiter before passing the request to the next middleware.
func (m *Middleware) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	limiter := m.limiterFor(req.URL.Host)

	if limiter.Tokens() < 1 {
		m.logger.WithFields(
			logger.String("host", req.URL.Host),
			logger.String("endpoint", GetNormalizedPath(req.URL.Path)),
		).Debug("Pacing upstream request")
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pacer wait: %w", err)
	}

	return next(ctx, httpClient, req)
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}

func (m *Middleware) limiterFor(host string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, ok := m.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(m.rps, m.burst)
		m.limiters[host] = limiter
	}

	return limiter
}

// GetNormalizedPath returns a path where numeric IDs are replaced with placeholders.
func GetNormalizedPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if NumericIDPattern.MatchString(part) {
			parts[i] = "{id}"
		}
	}

	return strings.Join(parts, "/")
}
