package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"llmcouncil/internal/bootstrap"
	"llmcouncil/internal/debate"
	"llmcouncil/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	tuning := debate.TuningFromConfig(app.Config.Debate)
	debateHandler := handler.NewDebateHandler(
		app.Gateway,
		tuning,
		app.Roster,
		app.Publisher,
		time.Duration(app.Config.Debate.HeartbeatSeconds)*time.Second,
		app.Logger,
	)
	participantsHandler := handler.NewParticipantsHandler(app.Roster)
	topicsHandler := handler.NewTopicsHandler(app.Trending, app.Logger)

	v1 := router.Group("/api/v1")
	v1.GET("/participants", participantsHandler.List)
	v1.GET("/topics/trending", topicsHandler.Trending)
	v1.POST("/debates", debateHandler.Batch)
	v1.POST("/debates/stream", debateHandler.Stream)

	return router
}
