package debate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"llmcouncil/internal/ai"
	"llmcouncil/internal/config"
	"llmcouncil/internal/model"
	"llmcouncil/internal/sentiment"
	"llmcouncil/internal/vote"
)

var (
	ErrEmptyQuestion         = errors.New("question is required")
	ErrNotEnoughParticipants = errors.New("need at least 2 distinct participants")
)

// Gateway is the LLM capability the orchestrator consumes.
type Gateway interface {
	Complete(ctx context.Context, ref ai.ModelRef, req ai.GenerateRequest) (string, error)
	StreamComplete(ctx context.Context, ref ai.ModelRef, req ai.GenerateRequest, onChunk func(chunk string) error) (string, error)
	SupportsTools(provider, model string) bool
}

// Options toggle the optional sub-phases of a debate.
type Options struct {
	EnableDevilsAdvocate   bool
	EnableCrossExamination bool
	EnableWebSearch        bool
}

// StartRequest describes one debate to run.
type StartRequest struct {
	Question     string
	Participants []model.Participant
	MaxRounds    int
	Options      Options
}

// Tuning carries the orchestration constants, sourced from config.
type Tuning struct {
	MaxRoundsCap         int
	DefaultRounds        int
	HistoryWindow        int
	MessageCharBudget    int
	VoteCharBudget       int
	TurnTimeout          time.Duration
	MaxAttempts          int
	RetryBackoff         time.Duration
	SpeakMaxTokens       int
	SpeakTemperature     float64
	VoteMaxTokens        int
	VoteTemperature      float64
	CrossExamMaxTokens   int
	CrossExamTemperature float64
}

func TuningFromConfig(cfg config.DebateConfig) Tuning {
	return Tuning{
		MaxRoundsCap:         cfg.MaxRoundsCap,
		DefaultRounds:        cfg.DefaultRounds,
		HistoryWindow:        cfg.HistoryWindow,
		MessageCharBudget:    cfg.MessageCharBudget,
		VoteCharBudget:       cfg.VoteCharBudget,
		TurnTimeout:          time.Duration(cfg.TurnTimeoutSeconds) * time.Second,
		MaxAttempts:          cfg.MaxAttempts,
		RetryBackoff:         time.Duration(cfg.RetryBackoffSeconds) * time.Second,
		SpeakMaxTokens:       cfg.SpeakMaxTokens,
		SpeakTemperature:     cfg.SpeakTemperature,
		VoteMaxTokens:        cfg.VoteMaxTokens,
		VoteTemperature:      cfg.VoteTemperature,
		CrossExamMaxTokens:   cfg.CrossExamMaxTokens,
		CrossExamTemperature: cfg.CrossExamTemperature,
	}
}

// Result is the terminal aggregation of one completed debate.
type Result struct {
	Session   *Session
	Scores    []model.ScoreSummary
	Consensus float64
	WinnerID  string
}

// Orchestrator drives one debate session at a time through its phases. All
// model calls within a session are sequential; state needs no locking because
// it is confined to this single flow. Randomness (devil's-advocate selection,
// fallback vote targets) comes from the injected source only.
type Orchestrator struct {
	gateway Gateway
	tuning  Tuning
	rng     *rand.Rand
	logger  *zap.Logger
}

func NewOrchestrator(gateway Gateway, tuning Tuning, rng *rand.Rand, logger *zap.Logger) *Orchestrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gateway: gateway,
		tuning:  tuning,
		rng:     rng,
		logger:  logger,
	}
}

// Validate fails fast on requests that must be rejected before any event is
// emitted.
func Validate(req StartRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return ErrEmptyQuestion
	}
	distinct := make(map[string]struct{}, len(req.Participants))
	for _, p := range req.Participants {
		distinct[p.ID] = struct{}{}
	}
	// A repeated participant would leave voters with nobody to vote for.
	if len(distinct) < 2 {
		return ErrNotEnoughParticipants
	}
	return nil
}

// Run drives the debate to completion, emitting the lifecycle event sequence
// through sink in strict order. A sink error or context cancellation stops
// forward progress; per-turn model failures are recovered locally and never
// abort the session.
func (o *Orchestrator) Run(ctx context.Context, req StartRequest, sink Sink) (*Result, error) {
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
		ID:           uuid.NewString(),
		Question:     strings.TrimSpace(req.Question),
		Participants: req.Participants,
		MaxRounds:    rounds,
		Options:      req.Options,
		Phase:        PhaseDebating,
	}

	publics := make([]model.PublicParticipant, len(s.Participants))
	for i, p := range s.Participants {
		publics[i] = p.Public()
	}
	if err := sink(Event{EventDebateStart, DebateStartPayload{
		Question:               s.Question,
		Participants:           publics,
		MaxRounds:              rounds,
		EnableDevilsAdvocate:   req.Options.EnableDevilsAdvocate,
		EnableCrossExamination: req.Options.EnableCrossExamination,
		EnableWebSearch:        req.Options.EnableWebSearch,
	}}); err != nil {
		return nil, err
	}

	for round := 1; round <= rounds; round++ {
		if err := sink(Event{EventRoundStart, RoundPayload{Round: round, TotalRounds: rounds}}); err != nil {
			return nil, err
		}

		// Decided once per round, before the first speaker, and applied to
		// that one participant's framing for the whole round.
		devilID := ""
		if req.Options.EnableDevilsAdvocate && round > 1 {
			devilID = s.Participants[o.rng.Intn(len(s.Participants))].ID
			if err := sink(Event{EventDevilsAdvocate, DevilsAdvocatePayload{ParticipantID: devilID, Round: round}}); err != nil {
				return nil, err
			}
		}

		for _, p := range s.Participants {
			if err := o.speakTurn(ctx, s, p, round, devilID, sink); err != nil {
				s.Phase = PhaseFailed
				return nil, err
			}
		}

		if err := sink(Event{EventRoundEnd, RoundPayload{Round: round, TotalRounds: rounds}}); err != nil {
			return nil, err
		}
	}

	if req.Options.EnableCrossExamination {
		if err := o.crossExamPhase(ctx, s, sink); err != nil {
			s.Phase = PhaseFailed
			return nil, err
		}
	}

	if err := o.votingPhase(ctx, s, sink); err != nil {
		s.Phase = PhaseFailed
		return nil, err
	}

	result := o.aggregate(s)
	s.Phase = PhaseConcluded
	if err := sink(Event{EventDebateEnd, DebateEndPayload{
		Consensus:     result.Consensus,
		TotalMessages: len(s.Messages),
		TotalVotes:    len(s.Votes),
		Scores:        result.Scores,
	}}); err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) speakTurn(ctx context.Context, s *Session, p model.Participant, round int, devilID string, sink Sink) error {
	messageID := fmt.Sprintf("%s-%d-%s", p.ID, round, uuid.NewString())

	if err := sink(Event{EventSpeaking, SpeakingPayload{ParticipantID: p.ID, Round: round, MessageID: messageID}}); err != nil {
		return err
	}

	req := ai.GenerateRequest{
		System:       speakSystemPrompt(p, s.otherNames(p), round, p.ID == devilID),
		Prompt:       speakUserPrompt(s.Question, s.historyWindow(o.tuning.HistoryWindow, o.tuning.MessageCharBudget), round),
		MaxTokens:    o.tuning.SpeakMaxTokens,
		Temperature:  o.tuning.SpeakTemperature,
		EnableSearch: s.Options.EnableWebSearch && o.gateway.SupportsTools(p.Provider, p.Model),
	}

	content, ok, err := o.streamWithRetry(ctx, ai.ModelRef{Provider: p.Provider, Model: p.Model}, req,
		func() func(chunk string) error {
			var full strings.Builder
			return func(chunk string) error {
				full.WriteString(chunk)
				return sink(Event{EventChunk, ChunkPayload{
					ParticipantID: p.ID,
					MessageID:     messageID,
					Chunk:         chunk,
					FullText:      full.String(),
				}})
			}
		},
		func(nextAttempt int) error {
			return sink(Event{EventChunk, ChunkPayload{
				ParticipantID: p.ID,
				MessageID:     messageID,
				FullText:      fmt.Sprintf("[Retrying... attempt %d/%d]\n\n", nextAttempt, o.tuning.MaxAttempts),
			}})
		})
	if err != nil {
		return err
	}

	if ok {
		dist := sentiment.Analyze(content)
		if err := sink(Event{EventSentiment, SentimentPayload{ParticipantID: p.ID, MessageID: messageID, Sentiment: dist}}); err != nil {
			return err
		}
		if err := sink(Event{EventMessageComplete, MessageCompletePayload{
			ParticipantID: p.ID,
			MessageID:     messageID,
			Content:       content,
			Round:         round,
		}}); err != nil {
			return err
		}
	} else {
		// A single participant's outage never aborts the session: finalize a
		// placeholder so message counts stay rounds x participants.
		content = fmt.Sprintf("[%s encountered an error and could not respond. The debate continues...]", p.Name)
		o.logger.Warn("speaker turn exhausted retries",
			zap.String("participant", p.ID),
			zap.Int("round", round))
		if err := sink(Event{EventMessageComplete, MessageCompletePayload{
			ParticipantID: p.ID,
			MessageID:     messageID,
			Content:       content,
			Round:         round,
			Error:         true,
		}}); err != nil {
			return err
		}
	}

	s.Messages = append(s.Messages, model.Message{
		ID:            messageID,
		ParticipantID: p.ID,
		Content:       content,
		Round:         round,
		Timestamp:     time.Now(),
	})
	return nil
}

func (o *Orchestrator) crossExamPhase(ctx context.Context, s *Session, sink Sink) error {
	s.Phase = PhaseCrossExam
	n := len(s.Participants)
	if err := sink(Event{EventCrossExamStart, CrossExamStartPayload{TotalPairs: n * (n - 1)}}); err != nil {
		return err
	}

	total := 0
	for _, asker := range s.Participants {
		for _, target := range s.Participants {
			if target.ID == asker.ID {
				continue
			}
			if err := o.crossExamExchange(ctx, s, asker, target, sink); err != nil {
				return err
			}
			total++
		}
	}

	return sink(Event{EventCrossExamEnd, CrossExamEndPayload{TotalQuestions: total}})
}

func (o *Orchestrator) crossExamExchange(ctx context.Context, s *Session, asker, target model.Participant, sink Sink) error {
	questionID := uuid.NewString()
	targetMessages := s.recentMessagesOf(target.ID, 2)
	ref := ai.ModelRef{Provider: asker.Provider, Model: asker.Model}

	if err := sink(Event{EventCrossExamQuestion, CrossExamQuestionPayload{
		QuestionID: questionID,
		AskerID:    asker.ID,
		TargetID:   target.ID,
	}}); err != nil {
		return err
	}

	system, user := crossExamQuestionPrompt(asker, target, targetMessages, s.Question)
	question, ok, err := o.streamWithRetry(ctx, ref, ai.GenerateRequest{
		System:      system,
		Prompt:      user,
		MaxTokens:   o.tuning.CrossExamMaxTokens,
		Temperature: o.tuning.CrossExamTemperature,
	}, o.crossExamChunkEmitter(sink, EventCrossExamQuestionStream, questionID), nil)
	if err != nil {
		return err
	}
	if !ok {
		question = fmt.Sprintf("[%s could not produce a question.]", asker.Name)
	}
	if err := sink(Event{EventCrossExamQuestionComplete, CrossExamQuestionCompletePayload{
		QuestionID: questionID,
		Question:   question,
	}}); err != nil {
		return err
	}

	if err := sink(Event{EventCrossExamAnswer, CrossExamAnswerPayload{
		QuestionID: questionID,
		TargetID:   target.ID,
	}}); err != nil {
		return err
	}

	system, user = crossExamAnswerPrompt(target, asker, targetMessages, s.Question, question)
	answer, ok, err := o.streamWithRetry(ctx, ai.ModelRef{Provider: target.Provider, Model: target.Model}, ai.GenerateRequest{
		System:      system,
		Prompt:      user,
		MaxTokens:   o.tuning.CrossExamMaxTokens,
		Temperature: o.tuning.CrossExamTemperature,
	}, o.crossExamChunkEmitter(sink, EventCrossExamAnswerStream, questionID), nil)
	if err != nil {
		return err
	}
	if !ok {
		answer = fmt.Sprintf("[%s could not respond to the question.]", target.Name)
	}
	if err := sink(Event{EventCrossExamAnswerComplete, CrossExamAnswerCompletePayload{
		QuestionID: questionID,
		Answer:     answer,
		Sentiment:  sentiment.Analyze(answer),
	}}); err != nil {
		return err
	}

	s.Exchanges = append(s.Exchanges, model.CrossExamExchange{
		ID:       questionID,
		AskerID:  asker.ID,
		TargetID: target.ID,
		Question: question,
		Answer:   answer,
	})
	return nil
}

func (o *Orchestrator) crossExamChunkEmitter(sink Sink, eventName, questionID string) func() func(chunk string) error {
	return func() func(chunk string) error {
		return func(chunk string) error {
			return sink(Event{eventName, CrossExamStreamPayload{QuestionID: questionID, Chunk: chunk}})
		}
	}
}

func (o *Orchestrator) votingPhase(ctx context.Context, s *Session, sink Sink) error {
	s.Phase = PhaseVoting
	if err := sink(Event{EventVotingStart, VotingStartPayload{TotalParticipants: len(s.Participants)}}); err != nil {
		return err
	}

	for _, voter := range s.Participants {
		if err := sink(Event{EventVoting, VotingPayload{ParticipantID: voter.ID}}); err != nil {
			return err
		}

		v, err := o.collectVote(ctx, s, voter)
		if err != nil {
			return err
		}
		s.Votes = append(s.Votes, v)
		if err := sink(Event{EventVote, v}); err != nil {
			return err
		}
	}
	return nil
}

// collectVote returns a usable vote no matter what: parse failures degrade
// through the parser's fallback, exhausted retries degrade to a random other
// participant with a neutral score.
func (o *Orchestrator) collectVote(ctx context.Context, s *Session, voter model.Participant) (model.Vote, error) {
	req := ai.GenerateRequest{
		System:      peerVoteSystemPrompt(voter),
		Prompt:      peerVoteUserPrompt(s.Question, s.argumentSummaries(voter, o.tuning.VoteCharBudget)),
		MaxTokens:   o.tuning.VoteMaxTokens,
		Temperature: o.tuning.VoteTemperature,
	}

	raw, ok, err := o.completeWithRetry(ctx, ai.ModelRef{Provider: voter.Provider, Model: voter.Model}, req)
	if err != nil {
		return model.Vote{}, err
	}
	if ok {
		return vote.ParsePeerVote(raw, voter, s.Participants), nil
	}

	others := s.othersOf(voter)
	target := others[o.rng.Intn(len(others))]
	o.logger.Warn("vote exhausted retries, assigning randomly",
		zap.String("voter", voter.ID),
		zap.String("target", target.ID))
	return model.Vote{
		ParticipantID: voter.ID,
		VotedForID:    target.ID,
		Position:      "Error occurred during voting",
		Reasoning:     "The vote could not be generated after multiple attempts. Randomly assigned.",
		Score:         5,
	}, nil
}

func (o *Orchestrator) aggregate(s *Session) *Result {
	scores := make([]model.ScoreSummary, 0, len(s.Participants))
	winnerID := ""
	best := -1
	for _, p := range s.Participants {
		total, count := 0, 0
		for _, v := range s.Votes {
			if v.VotedForID == p.ID {
				total += v.Score
				count++
			}
		}
		avg := 0.0
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		scores = append(scores, model.ScoreSummary{
			ParticipantID: p.ID,
			TotalScore:    total,
			VoteCount:     count,
			AverageScore:  avg,
		})
		// Ties break in roster order: the first participant to reach the top
		// total keeps it.
		if total > best {
			best = total
			winnerID = p.ID
		}
	}

	sum := 0
	for _, v := range s.Votes {
		sum += v.Score
	}
	consensus := 0.0
	if len(s.Votes) > 0 {
		consensus = float64(sum) / float64(len(s.Votes)) / 10 * 100
	}

	return &Result{
		Session:   s,
		Scores:    scores,
		Consensus: consensus,
		WinnerID:  winnerID,
	}
}

// streamWithRetry races each attempt against the turn timeout. The expired
// attempt's request is abandoned via context cancellation, never awaited.
// Returns ok=false when every attempt failed; a non-nil error only for fatal
// conditions (sink failure, parent cancellation).
func (o *Orchestrator) streamWithRetry(
	ctx context.Context,
	ref ai.ModelRef,
	req ai.GenerateRequest,
	newChunkEmitter func() func(chunk string) error,
	retryNotice func(nextAttempt int) error,
) (string, bool, error) {
	for attempt := 1; attempt <= o.tuning.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.tuning.TurnTimeout)

		var sinkErr error
		onChunk := newChunkEmitter()
		full, err := o.gateway.StreamComplete(attemptCtx, ref, req, func(chunk string) error {
			if emitErr := onChunk(chunk); emitErr != nil {
				sinkErr = emitErr
				return emitErr
			}
			return nil
		})
		cancel()

		if sinkErr != nil {
			return "", false, sinkErr
		}
		if err == nil {
			return full, true, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		o.logger.Warn("model stream attempt failed",
			zap.String("provider", ref.Provider),
			zap.String("model", ref.Model),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < o.tuning.MaxAttempts {
			if retryNotice != nil {
				if noticeErr := retryNotice(attempt + 1); noticeErr != nil {
					return "", false, noticeErr
				}
			}
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(o.tuning.RetryBackoff):
			}
		}
	}
	return "", false, nil
}

func (o *Orchestrator) completeWithRetry(ctx context.Context, ref ai.ModelRef, req ai.GenerateRequest) (string, bool, error) {
	for attempt := 1; attempt <= o.tuning.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.tuning.TurnTimeout)
		full, err := o.gateway.Complete(attemptCtx, ref, req)
		cancel()

		if err == nil {
			return full, true, nil
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		o.logger.Warn("model call attempt failed",
			zap.String("provider", ref.Provider),
			zap.String("model", ref.Model),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < o.tuning.MaxAttempts {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(o.tuning.RetryBackoff):
			}
		}
	}
	return "", false, nil
}
