package debate

import (
	"strings"

	"llmcouncil/internal/model"
)

// Phase of a running session. Mutated only by the orchestrator's own
// sequential flow.
type Phase string

const (
	PhaseDebating  Phase = "debating"
	PhaseCrossExam Phase = "cross-examination"
	PhaseVoting    Phase = "voting"
	PhaseConcluded Phase = "concluded"
	PhaseFailed    Phase = "failed"
)

// Session is the aggregate root for one debate. It lives only for the
// duration of the request that started it and is never persisted; the client
// rebuilds its own view by folding the event feed.
type Session struct {
	ID           string
	Question     string
	Participants []model.Participant
	MaxRounds    int
	Options      Options

	Messages  []model.Message
	Votes     []model.Vote
	Exchanges []model.CrossExamExchange
	Phase     Phase
}

func (s *Session) participantName(id string) string {
	for _, p := range s.Participants {
		if p.ID == id {
			return p.Name
		}
	}
	return "Unknown"
}

func (s *Session) othersOf(participant model.Participant) []model.Participant {
	others := make([]model.Participant, 0, len(s.Participants)-1)
	for _, p := range s.Participants {
		if p.ID != participant.ID {
			others = append(others, p)
		}
	}
	return others
}

func (s *Session) otherNames(participant model.Participant) []string {
	others := s.othersOf(participant)
	names := make([]string, len(others))
	for i, p := range others {
		names[i] = p.Name
	}
	return names
}

// historyWindow renders the last `window` messages as "Name: content" lines,
// each truncated to `charBudget` characters. The bound keeps prompt cost
// predictable as rounds accumulate.
func (s *Session) historyWindow(window, charBudget int) string {
	messages := s.Messages
	if window > 0 && len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, s.participantName(msg.ParticipantID)+": "+truncateRunes(msg.Content, charBudget))
	}
	return strings.Join(lines, "\n\n")
}

// recentMessagesOf returns the participant's `n` most recent messages, oldest
// first.
func (s *Session) recentMessagesOf(participantID string, n int) []model.Message {
	var own []model.Message
	for _, msg := range s.Messages {
		if msg.ParticipantID == participantID {
			own = append(own, msg)
		}
	}
	if len(own) > n {
		own = own[len(own)-n:]
	}
	return own
}

// argumentSummaries renders each other participant's full contribution, with
// per-message truncation, for the voting prompt.
func (s *Session) argumentSummaries(voter model.Participant, charBudget int) string {
	var blocks []string
	for _, p := range s.Participants {
		if p.ID == voter.ID {
			continue
		}
		var contents []string
		for _, msg := range s.Messages {
			if msg.ParticipantID == p.ID {
				contents = append(contents, truncateRunes(msg.Content, charBudget))
			}
		}
		body := strings.Join(contents, "\n\n")
		if body == "" {
			body = "[No substantial contribution]"
		}
		blocks = append(blocks, "**"+p.Name+"** ("+p.Avatar+"):\n"+body)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
