package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llmcouncil/internal/model"
	"llmcouncil/internal/transport/http/response"
)

const defaultTrendingLimit = 10

// TrendingStore ranks debate topics by popularity.
type TrendingStore interface {
	Trending(ctx context.Context, limit int) ([]model.TrendingTopic, error)
}

type TopicsHandler struct {
	store  TrendingStore
	logger *zap.Logger
}

func NewTopicsHandler(store TrendingStore, logger *zap.Logger) *TopicsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicsHandler{store: store, logger: logger}
}

func (h *TopicsHandler) Trending(c *gin.Context) {
	limit := defaultTrendingLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	topics, err := h.store.Trending(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("trending lookup failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "trending lookup failed")
		return
	}

	response.OK(c, topics)
}
