package handler

import (
	"github.com/gin-gonic/gin"

	"llmcouncil/internal/model"
	"llmcouncil/internal/roster"
	"llmcouncil/internal/transport/http/response"
)

type ParticipantsHandler struct {
	roster *roster.Roster
}

func NewParticipantsHandler(r *roster.Roster) *ParticipantsHandler {
	return &ParticipantsHandler{roster: r}
}

// List returns the roster's public fields only. Provider and model identifiers
// stay server-side.
func (h *ParticipantsHandler) List(c *gin.Context) {
	all := h.roster.All()
	publics := make([]model.PublicParticipant, len(all))
	for i, p := range all {
		publics[i] = p.Public()
	}
	response.OK(c, publics)
}
