package setup

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/jaxron/roapi.go/pkg/api"
	"github.com/robalyx/rowatch/internal/redis"
	"github.com/robalyx/rowatch/internal/setup/client"
	"github.com/robalyx/rowatch/internal/setup/config"
	"github.com/robalyx/rowatch/internal/setup/telemetry"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/pkg/utils"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config        *config.Config     // Application configuration
	Logger        *zap.Logger        // Main application logger
	StorageLogger *zap.Logger        // Storage-specific logger
	RoAPI         *api.API           // RoAPI HTTP client
	Store         *storage.Store     // Dataset store
	RedisManager  *redis.Manager     // Redis connection manager
	LogManager    *telemetry.Manager // Log management system
	UserID        int64              // Logged-in user owning the cookie
	Created       []storage.Dataset  // Datasets created empty during this boot
}

// InitializeApp bootstraps all application dependencies in the correct order.
// Failures here are fatal to the caller; nothing after boot terminates the process.
func InitializeApp(ctx context.Context, console bool) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(&cfg.Debug, console)

	logger, storageLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Redis, logger)

	backend, err := NewBackend(&cfg.Storage, redisManager)
	if err != nil {
		redisManager.Close()
		logManager.Close()

		return nil, err
	}

	store := storage.New(backend, storageLogger)

	created, err := store.Init(ctx)
	if err != nil {
		_ = store.Close()
		redisManager.Close()
		logManager.Close()

		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if len(created) > 0 {
		logger.Info("Created missing datasets", zap.Int("count", len(created)))
	}

	roAPI := client.GetRoAPIClient(&cfg.Roblox, logger)

	userID := cfg.Roblox.UserID
	if userID == 0 {
		httpClient := &http.Client{Timeout: time.Duration(cfg.Roblox.RequestTimeout) * time.Millisecond}

		user, err := client.ResolveUser(
			ctx, httpClient, client.AuthenticatedUserURL, cfg.Roblox.Cookie, utils.GetBootRetryOptions(), logger,
		)
		if err != nil {
			_ = store.Close()
			redisManager.Close()
			logManager.Close()

			return nil, err
		}

		userID = user.ID
	}

	return &App{
		Config:        cfg,
		Logger:        logger.With(zap.Int64("userID", userID)),
		StorageLogger: storageLogger,
		RoAPI:         roAPI,
		Store:         store,
		RedisManager:  redisManager,
		LogManager:    logManager,
		UserID:        userID,
		Created:       created,
	}, nil
}

// FreshlyCreated reports whether ds was created empty during this boot.
func (s *App) FreshlyCreated(ds storage.Dataset) bool {
	return slices.Contains(s.Created, ds)
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors so every component gets a cleanup attempt.
func (s *App) Cleanup() {
	if err := s.Store.Close(); err != nil {
		s.Logger.Error("Failed to close store", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.StorageLogger.Sync(); err != nil {
		log.Printf("Failed to sync storage logger: %v", err)
	}

	// Close Redis connections last as the store might need them while closing
	s.RedisManager.Close()
	s.LogManager.Close()
}
