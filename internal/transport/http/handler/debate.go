package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llmcouncil/internal/debate"
	"llmcouncil/internal/model"
	"llmcouncil/internal/roster"
	"llmcouncil/internal/transport/http/response"
)

// CompletionPublisher fans completed-debate records out to the queue. Publish
// failure is the publisher's problem, never the debate's.
type CompletionPublisher interface {
	PublishDebateCompleted(ctx context.Context, record model.CompletionRecord) error
}

type DebateHandler struct {
	gateway   debate.Gateway
	tuning    debate.Tuning
	roster    *roster.Roster
	publisher CompletionPublisher
	heartbeat time.Duration
	logger    *zap.Logger
}

type DebateRequest struct {
	Question               string   `json:"question" binding:"required"`
	ParticipantIDs         []string `json:"participantIds"`
	MaxRounds              int      `json:"maxRounds"`
	EnableDevilsAdvocate   bool     `json:"enableDevilsAdvocate"`
	EnableCrossExamination bool     `json:"enableCrossExamination"`
	EnableWebSearch        bool     `json:"enableWebSearch"`
}

func NewDebateHandler(
	gateway debate.Gateway,
	tuning debate.Tuning,
	r *roster.Roster,
	publisher CompletionPublisher,
	heartbeat time.Duration,
	logger *zap.Logger,
) *DebateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebateHandler{
		gateway:   gateway,
		tuning:    tuning,
		roster:    r,
		publisher: publisher,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// resolveStart turns the wire request into a StartRequest, or reports the
// validation failure to reject before any stream bytes are written. The
// caller must name at least two distinct roster ids; there is no implicit
// full-roster default.
func (h *DebateHandler) resolveStart(req DebateRequest) (debate.StartRequest, error) {
	participants := h.roster.ResolveIDs(req.ParticipantIDs)

	start := debate.StartRequest{
		Question:     req.Question,
		Participants: participants,
		MaxRounds:    req.MaxRounds,
		Options: debate.Options{
			EnableDevilsAdvocate:   req.EnableDevilsAdvocate,
			EnableCrossExamination: req.EnableCrossExamination,
			EnableWebSearch:        req.EnableWebSearch,
		},
	}
	return start, debate.Validate(start)
}

func validationCode(err error) int {
	switch {
	case errors.Is(err, debate.ErrEmptyQuestion):
		return response.CodeEmptyQuestion
	case errors.Is(err, debate.ErrNotEnoughParticipants):
		return response.CodeNotEnoughParticipants
	default:
		return response.CodeBadRequest
	}
}

// Stream runs a debate over SSE. Validation failures are plain JSON 400s; once
// the stream opens, all outcomes including failure travel as events.
func (h *DebateHandler) Stream(c *gin.Context) {
	var req DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	start, err := h.resolveStart(req)
	if err != nil {
		response.Error(c, http.StatusBadRequest, validationCode(err), err.Error())
		return
	}

	writer, err := newEventWriter(c.Writer)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}
	writer.StartHeartbeat(h.heartbeat)
	defer writer.StopHeartbeat()

	// The heartbeat must not interleave after the terminal event, so it stops
	// before debate-end goes out.
	sink := func(ev debate.Event) error {
		if ev.Name == debate.EventDebateEnd {
			writer.StopHeartbeat()
		}
		return writer.Send(ev)
	}

	orch := debate.NewOrchestrator(h.gateway, h.tuning, nil, h.logger)
	result, err := orch.Run(c.Request.Context(), start, sink)
	if err != nil {
		writer.StopHeartbeat()
		if c.Request.Context().Err() != nil {
			// Client disconnected; nobody is listening for an error event.
			h.logger.Info("debate stream aborted by client", zap.Error(err))
			return
		}
		h.logger.Error("debate stream failed", zap.Error(err))
		_ = writer.Send(debate.Event{
			Name: debate.EventError,
			Data: debate.ErrorPayload{Message: "debate failed", Code: "DEBATE_FAILED"},
		})
		return
	}

	h.publishCompletion(start, result)
}

// Batch runs the non-streaming debate and replies with the aggregated result.
func (h *DebateHandler) Batch(c *gin.Context) {
	var req DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	start, err := h.resolveStart(req)
	if err != nil {
		response.Error(c, http.StatusBadRequest, validationCode(err), err.Error())
		return
	}

	orch := debate.NewOrchestrator(h.gateway, h.tuning, nil, h.logger)
	result, err := orch.RunBatch(c.Request.Context(), start)
	if err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		h.logger.Error("batch debate failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "debate failed")
		return
	}

	response.OK(c, result)
}

func (h *DebateHandler) publishCompletion(start debate.StartRequest, result *debate.Result) {
	if h.publisher == nil || result == nil {
		return
	}

	ids := make([]string, len(start.Participants))
	for i, p := range start.Participants {
		ids[i] = p.ID
	}
	record := model.CompletionRecord{
		Question:       result.Session.Question,
		ParticipantIDs: ids,
		WinnerID:       result.WinnerID,
		Consensus:      result.Consensus,
		TotalMessages:  len(result.Session.Messages),
		TotalVotes:     len(result.Session.Votes),
		CompletedAt:    time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publisher.PublishDebateCompleted(ctx, record); err != nil {
			h.logger.Warn("publish debate completion failed", zap.Error(err))
		}
	}()
}
