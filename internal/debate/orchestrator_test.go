package debate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmcouncil/internal/ai"
	"llmcouncil/internal/model"
)

type fakeGateway struct {
	streamFn   func(ref ai.ModelRef, req ai.GenerateRequest, onChunk func(string) error) (string, error)
	completeFn func(ref ai.ModelRef, req ai.GenerateRequest) (string, error)
	tools      bool
}

func (g *fakeGateway) Complete(_ context.Context, ref ai.ModelRef, req ai.GenerateRequest) (string, error) {
	return g.completeFn(ref, req)
}

func (g *fakeGateway) StreamComplete(_ context.Context, ref ai.ModelRef, req ai.GenerateRequest, onChunk func(string) error) (string, error) {
	return g.streamFn(ref, req, onChunk)
}

func (g *fakeGateway) SupportsTools(provider, model string) bool {
	return g.tools
}

func happyGateway() *fakeGateway {
	return &fakeGateway{
		streamFn: func(_ ai.ModelRef, _ ai.GenerateRequest, onChunk func(string) error) (string, error) {
			for _, chunk := range []string{"Hello ", "council."} {
				if err := onChunk(chunk); err != nil {
					return "", err
				}
			}
			return "Hello council.", nil
		},
		completeFn: func(_ ai.ModelRef, _ ai.GenerateRequest) (string, error) {
			return `{"votedFor": "Alice", "position": "p", "reasoning": "r", "score": 8}`, nil
		},
	}
}

func testTuning() Tuning {
	return Tuning{
		MaxRoundsCap:      5,
		DefaultRounds:     3,
		HistoryWindow:     10,
		MessageCharBudget: 500,
		VoteCharBudget:    300,
		TurnTimeout:       time.Second,
		MaxAttempts:       2,
		RetryBackoff:      time.Millisecond,
		SpeakMaxTokens:    400,
		VoteMaxTokens:     300,
	}
}

func testParticipants(n int) []model.Participant {
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	out := make([]model.Participant, n)
	for i := 0; i < n; i++ {
		out[i] = model.Participant{
			ID:       strings.ToLower(names[i]),
			Name:     names[i],
			Model:    "test-model",
			Provider: "openai",
			Avatar:   names[i][:1],
		}
	}
	return out
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) named(name string) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func newTestOrchestrator(g Gateway, seed int64) *Orchestrator {
	return NewOrchestrator(g, testTuning(), rand.New(rand.NewSource(seed)), nil)
}

func TestRunValidation(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "   ",
		Participants: testParticipants(2),
	}, rec.sink)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = orch.Run(context.Background(), StartRequest{
		Question:     "Is water wet?",
		Participants: testParticipants(1),
	}, rec.sink)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	// Two seats held by the same participant leave no one to vote for.
	same := testParticipants(1)[0]
	_, err = orch.Run(context.Background(), StartRequest{
		Question:     "Is water wet?",
		Participants: []model.Participant{same, same},
	}, rec.sink)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	assert.Empty(t, rec.events, "no events before validation passes")
}

func TestRunHappyPath(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	result, err := orch.Run(context.Background(), StartRequest{
		Question:     "Is remote work better?",
		Participants: testParticipants(2),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	require.NotEmpty(t, rec.events)
	assert.Equal(t, EventDebateStart, rec.events[0].Name)
	assert.Equal(t, EventDebateEnd, rec.events[len(rec.events)-1].Name)

	assert.Len(t, rec.named(EventSpeaking), 2)
	assert.Len(t, rec.named(EventMessageComplete), 2)
	assert.Len(t, rec.named(EventSentiment), 2)
	assert.Len(t, rec.named(EventVote), 2)

	end := rec.named(EventDebateEnd)[0].Data.(DebateEndPayload)
	assert.Equal(t, 2, end.TotalMessages)
	assert.Equal(t, 2, end.TotalVotes)
	assert.InDelta(t, 80.0, end.Consensus, 0.001, "two votes of 8 -> 80%")
	assert.Len(t, end.Scores, 2)

	assert.NotEmpty(t, result.WinnerID)
	assert.Equal(t, PhaseConcluded, result.Session.Phase)
}

func TestRunEventOrderPerTurn(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	// speaking precedes its chunks, sentiment precedes message-complete.
	order := map[string]int{}
	for i, ev := range rec.events {
		if _, seen := order[ev.Name]; !seen {
			order[ev.Name] = i
		}
	}
	assert.Less(t, order[EventDebateStart], order[EventRoundStart])
	assert.Less(t, order[EventRoundStart], order[EventSpeaking])
	assert.Less(t, order[EventSpeaking], order[EventChunk])
	assert.Less(t, order[EventChunk], order[EventSentiment])
	assert.Less(t, order[EventSentiment], order[EventMessageComplete])
	assert.Less(t, order[EventRoundEnd], order[EventVotingStart])
	assert.Less(t, order[EventVotingStart], order[EventVoting])
	assert.Less(t, order[EventVoting], order[EventVote])
}

func TestRunChunkFullTextAccumulates(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	chunks := rec.named(EventChunk)
	require.GreaterOrEqual(t, len(chunks), 2)
	first := chunks[0].Data.(ChunkPayload)
	second := chunks[1].Data.(ChunkPayload)
	assert.Equal(t, "Hello ", first.FullText)
	assert.Equal(t, "Hello council.", second.FullText)
	assert.Equal(t, first.MessageID, second.MessageID)
}

func TestRunRoundsClamped(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{requested: 0, want: 3},
		{requested: -2, want: 3},
		{requested: 99, want: 5},
		{requested: 2, want: 2},
	}
	for _, tc := range cases {
		orch := newTestOrchestrator(happyGateway(), 1)
		rec := &eventRecorder{}

		_, err := orch.Run(context.Background(), StartRequest{
			Question:     "q",
			Participants: testParticipants(2),
			MaxRounds:    tc.requested,
		}, rec.sink)
		require.NoError(t, err)

		start := rec.named(EventDebateStart)[0].Data.(DebateStartPayload)
		assert.Equal(t, tc.want, start.MaxRounds, "requested %d", tc.requested)
		assert.Len(t, rec.named(EventRoundStart), tc.want)
		assert.Len(t, rec.named(EventMessageComplete), tc.want*2)
	}
}

func TestRunSpeakerFailureRecovered(t *testing.T) {
	g := happyGateway()
	g.streamFn = func(ref ai.ModelRef, req ai.GenerateRequest, onChunk func(string) error) (string, error) {
		if strings.Contains(req.System, "You are Alice") {
			return "", errors.New("upstream unavailable")
		}
		return "Bob's argument.", onChunk("Bob's argument.")
	}

	orch := newTestOrchestrator(g, 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err, "one participant failing never aborts the session")

	var retryNotices, errorCompletes int
	for _, ev := range rec.named(EventChunk) {
		payload := ev.Data.(ChunkPayload)
		if strings.HasPrefix(payload.FullText, "[Retrying... attempt ") {
			retryNotices++
			assert.Equal(t, "[Retrying... attempt 2/2]\n\n", payload.FullText)
		}
	}
	completes := rec.named(EventMessageComplete)
	require.Len(t, completes, 2)
	for _, ev := range completes {
		payload := ev.Data.(MessageCompletePayload)
		if payload.Error {
			errorCompletes++
			assert.Equal(t, "[Alice encountered an error and could not respond. The debate continues...]", payload.Content)
		}
	}
	assert.Equal(t, 1, retryNotices)
	assert.Equal(t, 1, errorCompletes)

	// No sentiment for the placeholder.
	assert.Len(t, rec.named(EventSentiment), 1)

	end := rec.named(EventDebateEnd)[0].Data.(DebateEndPayload)
	assert.Equal(t, 2, end.TotalMessages, "placeholder still counts toward rounds x participants")
}

func TestRunVoteFailureFallsBackRandomly(t *testing.T) {
	g := happyGateway()
	g.completeFn = func(_ ai.ModelRef, _ ai.GenerateRequest) (string, error) {
		return "", errors.New("upstream unavailable")
	}

	orch := newTestOrchestrator(g, 7)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(3),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	votes := rec.named(EventVote)
	require.Len(t, votes, 3)
	for _, ev := range votes {
		v := ev.Data.(model.Vote)
		assert.NotEqual(t, v.ParticipantID, v.VotedForID)
		assert.Equal(t, 5, v.Score)
		assert.Equal(t, "Error occurred during voting", v.Position)
	}
}

func TestRunDevilsAdvocate(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 42)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    3,
		Options:      Options{EnableDevilsAdvocate: true},
	}, rec.sink)
	require.NoError(t, err)

	picks := rec.named(EventDevilsAdvocate)
	require.Len(t, picks, 2, "rounds 2 and 3 only, never round 1")
	for _, ev := range picks {
		payload := ev.Data.(DevilsAdvocatePayload)
		assert.Greater(t, payload.Round, 1)
		assert.Contains(t, []string{"alice", "bob"}, payload.ParticipantID)
	}

	// The pick lands before the round's first speaking turn.
	for i, ev := range rec.events {
		if ev.Name == EventDevilsAdvocate {
			prev := rec.events[i-1]
			assert.Equal(t, EventRoundStart, prev.Name)
		}
	}
}

func TestRunDevilsAdvocateDeterministicWithSeed(t *testing.T) {
	run := func() []string {
		orch := newTestOrchestrator(happyGateway(), 42)
		rec := &eventRecorder{}
		_, err := orch.Run(context.Background(), StartRequest{
			Question:     "q",
			Participants: testParticipants(3),
			MaxRounds:    4,
			Options:      Options{EnableDevilsAdvocate: true},
		}, rec.sink)
		require.NoError(t, err)

		var picks []string
		for _, ev := range rec.named(EventDevilsAdvocate) {
			picks = append(picks, ev.Data.(DevilsAdvocatePayload).ParticipantID)
		}
		return picks
	}

	assert.Equal(t, run(), run())
}

func TestRunCrossExamination(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(3),
		MaxRounds:    1,
		Options:      Options{EnableCrossExamination: true},
	}, rec.sink)
	require.NoError(t, err)

	start := rec.named(EventCrossExamStart)[0].Data.(CrossExamStartPayload)
	assert.Equal(t, 6, start.TotalPairs, "3 participants -> 3*2 ordered pairs")
	assert.Len(t, rec.named(EventCrossExamQuestionComplete), 6)
	assert.Len(t, rec.named(EventCrossExamAnswerComplete), 6)

	end := rec.named(EventCrossExamEnd)[0].Data.(CrossExamEndPayload)
	assert.Equal(t, 6, end.TotalQuestions)

	// Every pair is asker != target.
	for _, ev := range rec.named(EventCrossExamQuestion) {
		payload := ev.Data.(CrossExamQuestionPayload)
		assert.NotEqual(t, payload.AskerID, payload.TargetID)
	}

	// Cross-exam sits between the last round and voting.
	order := map[string]int{}
	for i, ev := range rec.events {
		order[ev.Name] = i
	}
	assert.Less(t, order[EventRoundEnd], order[EventCrossExamStart])
	assert.Less(t, order[EventCrossExamEnd], order[EventVotingStart])
}

func TestRunCrossExaminationDisabled(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	rec := &eventRecorder{}

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(3),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	assert.Empty(t, rec.named(EventCrossExamStart))
	assert.Empty(t, rec.named(EventCrossExamQuestion))
}

func TestRunSinkErrorAborts(t *testing.T) {
	orch := newTestOrchestrator(happyGateway(), 1)
	sinkErr := errors.New("client gone")
	count := 0

	_, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    3,
	}, func(Event) error {
		count++
		if count >= 3 {
			return sinkErr
		}
		return nil
	})

	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 3, count, "no further emission after the sink fails")
}

func TestRunContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := happyGateway()
	calls := 0
	g.streamFn = func(_ ai.ModelRef, _ ai.GenerateRequest, onChunk func(string) error) (string, error) {
		calls++
		cancel()
		return "", fmt.Errorf("interrupted")
	}

	orch := newTestOrchestrator(g, 1)
	rec := &eventRecorder{}

	_, err := orch.Run(ctx, StartRequest{
		Question:     "q",
		Participants: testParticipants(2),
		MaxRounds:    3,
	}, rec.sink)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no retries once the parent context is gone")
}

func TestRunWinnerByTotalScoreRosterTieBreak(t *testing.T) {
	g := happyGateway()
	g.completeFn = func(_ ai.ModelRef, req ai.GenerateRequest) (string, error) {
		// Everyone votes for Carol.
		return `{"votedFor": "Carol", "position": "p", "reasoning": "r", "score": 9}`, nil
	}

	orch := newTestOrchestrator(g, 1)
	rec := &eventRecorder{}

	result, err := orch.Run(context.Background(), StartRequest{
		Question:     "q",
		Participants: testParticipants(3),
		MaxRounds:    1,
	}, rec.sink)
	require.NoError(t, err)

	// Carol votes too; her self-vote redirects to Alice, so Carol gets two
	// nines and Alice one.
	assert.Equal(t, "carol", result.WinnerID)

	end := rec.named(EventDebateEnd)[0].Data.(DebateEndPayload)
	carolScore := scoreOf(end.Scores, "carol")
	assert.Equal(t, 18, carolScore.TotalScore)
	assert.Equal(t, 2, carolScore.VoteCount)
	assert.InDelta(t, 9.0, carolScore.AverageScore, 0.001)
}

func scoreOf(scores []model.ScoreSummary, id string) model.ScoreSummary {
	for _, s := range scores {
		if s.ParticipantID == id {
			return s
		}
	}
	return model.ScoreSummary{}
}
