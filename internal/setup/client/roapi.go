package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/robalyx/rowatch/internal/setup/client/interceptor/pacer"
	"github.com/robalyx/rowatch/internal/setup/config"
	"github.com/robalyx/rowatch/internal/setup/telemetry/logger"
	"go.uber.org/zap"
)

// GetRoAPIClient constructs the upstream client authenticated with the configured cookie.
// Duplicate in-flight requests are collapsed, every host is paced and a
// breaker fails calls fast while the upstream keeps erroring.
func GetRoAPIClient(cfg *config.Roblox, zapLogger *zap.Logger) *api.API {
	pacerMiddleware := pacer.New(cfg.RequestsPerSecond, cfg.Burst)

	// Order matters: the breaker sees paced, deduplicated requests
	middlewares := []middleware.Middleware{
		circuitbreaker.New(
			cfg.BreakerMaxRequests,
			time.Duration(cfg.BreakerInterval)*time.Millisecond,
			time.Duration(cfg.BreakerTimeout)*time.Millisecond,
		),
		singleflight.New(),
		pacerMiddleware,
	}

	return api.New([]string{cfg.Cookie},
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.NewAxonet(zapLogger.Named("roapi"))),
		client.WithTimeout(time.Duration(cfg.RequestTimeout)*time.Millisecond),
		client.WithMiddleware(middlewares...),
	)
}
