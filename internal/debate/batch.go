package debate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"llmcouncil/internal/ai"
	"llmcouncil/internal/model"
	"llmcouncil/internal/vote"
)

// BatchResult is the one-shot response of a non-streaming debate.
type BatchResult struct {
	Question    string                 `json:"question"`
	Messages    []model.Message        `json:"messages"`
	Votes       []model.ConfidenceVote `json:"votes"`
	FinalAnswer string                 `json:"finalAnswer"`
	Consensus   float64                `json:"consensus"`
}

// RunBatch runs the round loop without event emission, then collects one
// confidence vote per participant concurrently and synthesizes a markdown
// conclusion. Confidence votes self-assess on a 0-100 scale and never target a
// peer, so their consensus is the plain mean.
func (o *Orchestrator) RunBatch(ctx context.Context, req StartRequest) (*BatchResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	rounds := req.MaxRounds
	if rounds <= 0 {
		rounds = o.tuning.DefaultRounds
	}
	if rounds > o.tuning.MaxRoundsCap {
		rounds = o.tuning.MaxRoundsCap
	}
	if rounds < 1 {
		rounds = 1
	}

	s := &Session{
		ID:           "",
		Question:     strings.TrimSpace(req.Question),
		Participants: req.Participants,
		MaxRounds:    rounds,
		Options:      req.Options,
		Phase:        PhaseDebating,
	}

	for round := 1; round <= rounds; round++ {
		for _, p := range s.Participants {
			genReq := ai.GenerateRequest{
				System:      speakSystemPrompt(p, s.otherNames(p), round, false),
				Prompt:      speakUserPrompt(s.Question, s.historyWindow(o.tuning.HistoryWindow, o.tuning.MessageCharBudget), round),
				MaxTokens:   o.tuning.SpeakMaxTokens,
				Temperature: o.tuning.SpeakTemperature,
			}
			content, ok, err := o.completeWithRetry(ctx, ai.ModelRef{Provider: p.Provider, Model: p.Model}, genReq)
			if err != nil {
				return nil, err
			}
			if !ok {
				content = fmt.Sprintf("[%s encountered an error and could not respond. The debate continues...]", p.Name)
			}
			s.Messages = append(s.Messages, model.Message{
				ID:            fmt.Sprintf("%s-%d", p.ID, round),
				ParticipantID: p.ID,
				Content:       content,
				Round:         round,
			})
		}
	}

	s.Phase = PhaseVoting
	history := s.historyWindow(0, o.tuning.MessageCharBudget)
	votes := make([]model.ConfidenceVote, len(s.Participants))

	g, gctx := errgroup.WithContext(ctx)
	for i, voter := range s.Participants {
		i, voter := i, voter
		g.Go(func() error {
			genReq := ai.GenerateRequest{
				System:      confidenceVoteSystemPrompt(voter),
				Prompt:      confidenceVoteUserPrompt(s.Question, history),
				MaxTokens:   o.tuning.VoteMaxTokens,
				Temperature: o.tuning.VoteTemperature,
			}
			raw, ok, err := o.completeWithRetry(gctx, ai.ModelRef{Provider: voter.Provider, Model: voter.Model}, genReq)
			if err != nil {
				return err
			}
			if !ok {
				votes[i] = model.ConfidenceVote{
					ParticipantID: voter.ID,
					Position:      "Unable to vote",
					Reasoning:     "The vote could not be generated after multiple attempts.",
					Confidence:    0,
				}
				return nil
			}
			votes[i] = vote.ParseConfidenceVote(raw, voter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Phase = PhaseFailed
		return nil, err
	}

	consensus := 0.0
	if len(votes) > 0 {
		sum := 0
		for _, v := range votes {
			sum += v.Confidence
		}
		consensus = float64(sum) / float64(len(votes))
	}

	s.Phase = PhaseConcluded
	return &BatchResult{
		Question:    s.Question,
		Messages:    s.Messages,
		Votes:       votes,
		FinalAnswer: synthesizeConclusion(s, votes, consensus),
		Consensus:   consensus,
	}, nil
}

// synthesizeConclusion renders the council's final answer as markdown, with
// positions ordered by descending confidence.
func synthesizeConclusion(s *Session, votes []model.ConfidenceVote, consensus float64) string {
	ranked := make([]model.ConfidenceVote, len(votes))
	copy(ranked, votes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var b strings.Builder
	b.WriteString("## Council Conclusion\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", s.Question)
	fmt.Fprintf(&b, "**Overall Confidence:** %.0f%%\n\n", consensus)
	b.WriteString("### Final Positions\n\n")
	for _, v := range ranked {
		fmt.Fprintf(&b, "- **%s** (%d%% confident): %s\n  %s\n", s.participantName(v.ParticipantID), v.Confidence, v.Position, v.Reasoning)
	}
	if len(ranked) > 0 {
		fmt.Fprintf(&b, "\n### Leading Answer\n\n%s\n", ranked[0].Position)
	}
	return b.String()
}
