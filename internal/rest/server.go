package rest

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/robalyx/rowatch/internal/rest/handler"
	"github.com/robalyx/rowatch/internal/rest/middleware/requestid"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Services are the components the API reads from and mutates.
type Services struct {
	Friends     handler.FriendService
	LastOnline  handler.LastOnlineService
	BestFriends handler.BestFriendService
	Games       handler.GameService
	Pinned      handler.PinnedService
	Status      handler.StatusSource
}

// NewServer creates the REST API handler.
func NewServer(services Services, logger *zap.Logger) http.Handler {
	logger = logger.Named("rest")

	friendHandler := handler.NewFriendHandler(services.Friends, services.LastOnline, logger)
	bestFriendHandler := handler.NewBestFriendHandler(services.BestFriends, logger)
	gameHandler := handler.NewGameHandler(services.Games, services.Pinned, logger)
	statusHandler := handler.NewStatusHandler(services.Status)

	requestIDMiddleware := requestid.New(logger)

	router := bunrouter.New()

	router.Use(requestIDMiddleware.AsRESTMiddleware).WithGroup("/api", func(g *bunrouter.Group) {
		g.POST("/reset-friend-history", friendHandler.Reset)

		g.WithGroup("/me", func(g *bunrouter.Group) {
			g.GET("/friend-history", friendHandler.GetHistory)
			g.GET("/last-online", friendHandler.GetLastOnline)

			g.GET("/best-friends", bestFriendHandler.List)
			g.POST("/best-friends/add/:id", bestFriendHandler.Add)
			g.POST("/best-friends/remove/:id", bestFriendHandler.Remove)

			g.GET("/game-history", gameHandler.GetHistory)
			g.POST("/game-history/reset", gameHandler.Reset)

			g.GET("/pinned-games", gameHandler.GetPinned)
			g.POST("/pinned-games/pin/:id", gameHandler.Pin)
			g.POST("/pinned-games/unpin/:id", gameHandler.Unpin)

			g.GET("/tracker-status", statusHandler.GetStatus)
		})
	})

	return gzhttp.GzipHandler(router)
}
