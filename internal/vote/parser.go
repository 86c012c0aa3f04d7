// Package vote turns free-form model output into well-formed votes. Model
// format compliance is never guaranteed, so parsing always succeeds: every
// failure path degrades to a deterministic, bounded fallback vote.
package vote

import (
	"encoding/json"
	"regexp"
	"strings"

	"llmcouncil/internal/model"
)

const (
	maxPositionLen  = 200
	maxReasoningLen = 500

	defaultScore      = 5
	minScore          = 1
	maxScore          = 10
	defaultConfidence = 50
)

// Non-greedy first-object match; vote payloads are flat, nested braces are
// not expected.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*?\}`)

type peerVotePayload struct {
	VotedFor  string          `json:"votedFor"`
	Position  string          `json:"position"`
	Reasoning string          `json:"reasoning"`
	Score     json.RawMessage `json:"score"`
}

// ParsePeerVote extracts a peer vote from raw model text. The returned vote
// always names a participant other than the voter and carries a score in
// [1,10]; when nothing parses, the target falls back to the first other
// participant in roster order.
func ParsePeerVote(raw string, voter model.Participant, all []model.Participant) model.Vote {
	others := othersOf(voter, all)

	fallback := model.Vote{
		ParticipantID: voter.ID,
		VotedForID:    others[0].ID,
		Position:      truncate(strings.TrimSpace(raw), maxPositionLen),
		Reasoning:     "Vote parsing failed - assigned to first eligible participant",
		Score:         defaultScore,
	}
	if fallback.Position == "" {
		fallback.Position = "Could not parse position"
	}

	span := jsonObjectPattern.FindString(raw)
	if span == "" {
		return fallback
	}

	var payload peerVotePayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return fallback
	}

	target, ok := resolveTarget(payload.VotedFor, others)
	if !ok {
		target = others[0]
	}

	position := strings.TrimSpace(payload.Position)
	if position == "" {
		position = "No position stated"
	}
	reasoning := strings.TrimSpace(payload.Reasoning)
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return model.Vote{
		ParticipantID: voter.ID,
		VotedForID:    target.ID,
		Position:      truncate(position, maxPositionLen),
		Reasoning:     truncate(reasoning, maxReasoningLen),
		Score:         clampScore(payload.Score),
	}
}

type confidenceVotePayload struct {
	Position   string          `json:"position"`
	Reasoning  string          `json:"reasoning"`
	Confidence json.RawMessage `json:"confidence"`
}

// ParseConfidenceVote extracts a batch-mode confidence vote (0-100 schema).
func ParseConfidenceVote(raw string, voter model.Participant) model.ConfidenceVote {
	fallback := model.ConfidenceVote{
		ParticipantID: voter.ID,
		Position:      truncate(strings.TrimSpace(raw), maxPositionLen),
		Reasoning:     "Unable to parse structured response",
		Confidence:    defaultConfidence,
	}
	if fallback.Position == "" {
		fallback.Position = "No clear position"
	}

	span := jsonObjectPattern.FindString(raw)
	if span == "" {
		return fallback
	}
	var payload confidenceVotePayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return fallback
	}

	position := strings.TrimSpace(payload.Position)
	if position == "" {
		position = "No clear position"
	}
	reasoning := strings.TrimSpace(payload.Reasoning)
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	confidence := defaultConfidence
	if n, ok := asNumber(payload.Confidence); ok {
		confidence = int(n)
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return model.ConfidenceVote{
		ParticipantID: voter.ID,
		Position:      truncate(position, maxPositionLen),
		Reasoning:     truncate(reasoning, maxReasoningLen),
		Confidence:    confidence,
	}
}

// resolveTarget matches a voted-for name against the other participants:
// case-insensitive exact match first, then substring containment in either
// direction.
func resolveTarget(name string, others []model.Participant) (model.Participant, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return model.Participant{}, false
	}
	for _, p := range others {
		if strings.ToLower(p.Name) == needle {
			return p, true
		}
	}
	for _, p := range others {
		lowered := strings.ToLower(p.Name)
		if strings.Contains(lowered, needle) || strings.Contains(needle, lowered) {
			return p, true
		}
	}
	return model.Participant{}, false
}

func othersOf(voter model.Participant, all []model.Participant) []model.Participant {
	others := make([]model.Participant, 0, len(all))
	for _, p := range all {
		if p.ID != voter.ID {
			others = append(others, p)
		}
	}
	return others
}

func clampScore(raw json.RawMessage) int {
	n, ok := asNumber(raw)
	if !ok {
		return defaultScore
	}
	score := int(n)
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// asNumber accepts both bare numbers and numeric strings, since models emit
// either form.
func asNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
