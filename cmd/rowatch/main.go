package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/rowatch/internal/registry"
	"github.com/robalyx/rowatch/internal/rest"
	"github.com/robalyx/rowatch/internal/roblox/fetcher"
	"github.com/robalyx/rowatch/internal/setup"
	"github.com/robalyx/rowatch/internal/storage"
	"github.com/robalyx/rowatch/internal/worker/core"
	"github.com/robalyx/rowatch/internal/worker/friend"
	"github.com/robalyx/rowatch/internal/worker/game"
	"github.com/robalyx/rowatch/internal/worker/presence"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// FriendTracker diffs the friends list.
	FriendTracker = "friends"
	// PresenceTracker maintains the last-online map.
	PresenceTracker = "presence"
	// GameTracker records visited places.
	GameTracker = "games"
)

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 60 * time.Second
	ShutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "rowatch",
		Usage: "Track Roblox friend and game history",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API and every tracker",
				Action: serve,
			},
			{
				Name:  "reset",
				Usage: "Reset a tracked history",
				Commands: []*cli.Command{
					{
						Name:  FriendTracker,
						Usage: "Rebuild the friend history from the current friends list",
						Action: func(ctx context.Context, _ *cli.Command) error {
							return withComponents(ctx, func(ctx context.Context, c *components) error {
								count, err := c.friends.Reset(ctx)
								if err != nil {
									return err
								}

								log.Printf("Friend history reset with %d friends", count)

								return nil
							})
						},
					},
					{
						Name:  GameTracker,
						Usage: "Clear the game history, keeping the current place",
						Action: func(ctx context.Context, _ *cli.Command) error {
							return withComponents(ctx, func(ctx context.Context, c *components) error {
								history, err := c.games.Reset(ctx)
								if err != nil {
									return err
								}

								log.Printf("Game history reset with %d sessions", len(history))

								return nil
							})
						},
					},
				},
			},
			{
				Name:  "run",
				Usage: "Run a single tracker cycle",
				Commands: []*cli.Command{
					runOnceCommand(FriendTracker, "Run one friend diff cycle"),
					runOnceCommand(PresenceTracker, "Run one presence cycle"),
					runOnceCommand(GameTracker, "Run one game presence cycle"),
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// components are the trackers and registries built on an initialized app.
type components struct {
	friends     *friend.Tracker
	lastOnline  *presence.Tracker
	games       *game.Tracker
	bestFriends *registry.BestFriends
	pinned      *registry.PinnedPlaces
	scheduler   *core.Scheduler
}

func newComponents(app *setup.App) *components {
	cfg := app.Config.Tracker
	friendFetcher := fetcher.NewFriendFetcher(app.RoAPI, app.Logger)
	presenceFetcher := fetcher.NewPresenceFetcher(app.RoAPI, app.Logger)

	friends := friend.New(app.Store, friendFetcher, app.UserID, app.LogManager.GetWorkerLogger(FriendTracker))
	lastOnline := presence.New(app.Store, presenceFetcher, friendFetcher, friends, app.UserID,
		app.LogManager.GetWorkerLogger(PresenceTracker))
	games := game.New(app.Store, presenceFetcher, app.UserID, app.LogManager.GetWorkerLogger(GameTracker))

	scheduler := core.NewScheduler(time.Duration(cfg.StartupDelay)*time.Millisecond, app.Logger)
	scheduler.Add(FriendTracker, time.Duration(cfg.FriendInterval)*time.Second, friends)
	scheduler.Add(PresenceTracker, time.Duration(cfg.PresenceInterval)*time.Second, lastOnline)
	scheduler.Add(GameTracker, time.Duration(cfg.GameInterval)*time.Second, games)

	return &components{
		friends:     friends,
		lastOnline:  lastOnline,
		games:       games,
		bestFriends: registry.NewBestFriends(app.Store, friendFetcher, app.UserID, app.Logger),
		pinned:      registry.NewPinnedPlaces(app.Store, app.Logger),
		scheduler:   scheduler,
	}
}

// withComponents boots the app for a one-shot command.
func withComponents(ctx context.Context, fn func(ctx context.Context, c *components) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	return fn(ctx, newComponents(app))
}

func runOnceCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return withComponents(ctx, func(ctx context.Context, c *components) error {
				return c.scheduler.Trigger(ctx, name)
			})
		},
	}
}

// serve runs the HTTP API and the scheduler until SIGINT or SIGTERM.
func serve(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	c := newComponents(app)

	// A fresh snapshot would otherwise log every current friend as added
	if app.FreshlyCreated(storage.FriendSnapshot) {
		if err := c.friends.Seed(ctx); err != nil {
			app.Logger.Error("Failed to seed friend snapshot", zap.Error(err))
		}
	}

	handler := rest.NewServer(rest.Services{
		Friends:     c.friends,
		LastOnline:  c.lastOnline,
		BestFriends: c.bestFriends,
		Games:       c.games,
		Pinned:      c.pinned,
		Status:      c.scheduler,
	}, app.Logger)

	addr := fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.scheduler.Start(gctx)
		return nil
	})

	g.Go(func() error {
		app.Logger.Info("REST server started", zap.String("addr", addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("Shutting down REST server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Server forced to shutdown", zap.Error(err))
		}

		return nil
	})

	err = g.Wait()
	app.Logger.Info("Server gracefully stopped")

	return err
}
