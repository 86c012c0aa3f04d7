package debate

import (
	"llmcouncil/internal/model"
	"llmcouncil/internal/sentiment"
)

// View statuses, mirrored by any client that folds the event feed.
const (
	StatusIdle      = "idle"
	StatusDebating  = "debating"
	StatusCrossExam = "cross-examination"
	StatusVoting    = "voting"
	StatusConcluded = "concluded"
	StatusError     = "error"
)

// ViewMessage is one message as seen mid-stream: Content tracks the cumulative
// fullText until message-complete finalizes it.
type ViewMessage struct {
	ID            string
	ParticipantID string
	Content       string
	Round         int
	Streaming     bool
	Error         bool
	Sentiment     *sentiment.Distribution
}

// ViewExchange is one cross-examination pair as it streams.
type ViewExchange struct {
	ID                string
	AskerID           string
	TargetID          string
	Question          string
	Answer            string
	QuestionStreaming bool
	AnswerStreaming   bool
}

// DebateView is the client-side projection of a session. It is rebuilt purely
// by folding events in order; no event ever requires information outside the
// view and the event itself.
type DebateView struct {
	Status           string
	Question         string
	Participants     []model.PublicParticipant
	MaxRounds        int
	CurrentRound     int
	CurrentSpeakerID string
	DevilsAdvocateID string
	Messages         []ViewMessage
	Exchanges        []ViewExchange
	Votes            []model.Vote
	Scores           []model.ScoreSummary
	Consensus        float64
	Error            string

	// Sentiments keeps only the latest snapshot per participant; each new
	// estimate replaces the previous one.
	Sentiments map[string]sentiment.Distribution
}

func NewView() DebateView {
	return DebateView{Status: StatusIdle}
}

// Reduce folds one event into the view. The input view is not mutated; element
// slices are copied before in-place updates so earlier snapshots stay valid.
func Reduce(v DebateView, ev Event) DebateView {
	switch data := ev.Data.(type) {
	case DebateStartPayload:
		v.Status = StatusDebating
		v.Question = data.Question
		v.Participants = data.Participants
		v.MaxRounds = data.MaxRounds

	case RoundPayload:
		if ev.Name == EventRoundStart {
			v.CurrentRound = data.Round
			v.DevilsAdvocateID = ""
		} else {
			v.CurrentSpeakerID = ""
		}

	case DevilsAdvocatePayload:
		v.DevilsAdvocateID = data.ParticipantID

	case SpeakingPayload:
		v.CurrentSpeakerID = data.ParticipantID
		v.Messages = append(cloneMessages(v.Messages), ViewMessage{
			ID:            data.MessageID,
			ParticipantID: data.ParticipantID,
			Round:         data.Round,
			Streaming:     true,
		})

	case ChunkPayload:
		v.Messages = updateMessage(v.Messages, data.MessageID, func(m *ViewMessage) {
			m.Content = data.FullText
		})

	case SentimentPayload:
		dist := data.Sentiment
		v.Messages = updateMessage(v.Messages, data.MessageID, func(m *ViewMessage) {
			m.Sentiment = &dist
		})
		v.Sentiments = withSentiment(v.Sentiments, data.ParticipantID, dist)

	case MessageCompletePayload:
		v.Messages = updateMessage(v.Messages, data.MessageID, func(m *ViewMessage) {
			m.Content = data.Content
			m.Streaming = false
			m.Error = data.Error
		})
		v.CurrentSpeakerID = ""

	case CrossExamStartPayload:
		v.Status = StatusCrossExam

	case CrossExamQuestionPayload:
		v.Exchanges = append(cloneExchanges(v.Exchanges), ViewExchange{
			ID:                data.QuestionID,
			AskerID:           data.AskerID,
			TargetID:          data.TargetID,
			QuestionStreaming: true,
		})

	case CrossExamStreamPayload:
		v.Exchanges = updateExchange(v.Exchanges, data.QuestionID, func(e *ViewExchange) {
			if ev.Name == EventCrossExamQuestionStream {
				e.Question += data.Chunk
			} else {
				e.Answer += data.Chunk
			}
		})

	case CrossExamQuestionCompletePayload:
		v.Exchanges = updateExchange(v.Exchanges, data.QuestionID, func(e *ViewExchange) {
			e.Question = data.Question
			e.QuestionStreaming = false
		})

	case CrossExamAnswerPayload:
		v.Exchanges = updateExchange(v.Exchanges, data.QuestionID, func(e *ViewExchange) {
			e.AnswerStreaming = true
		})

	case CrossExamAnswerCompletePayload:
		for _, e := range v.Exchanges {
			if e.ID == data.QuestionID {
				v.Sentiments = withSentiment(v.Sentiments, e.TargetID, data.Sentiment)
				break
			}
		}
		v.Exchanges = updateExchange(v.Exchanges, data.QuestionID, func(e *ViewExchange) {
			e.Answer = data.Answer
			e.AnswerStreaming = false
		})

	case CrossExamEndPayload:
		// pairs already finalized individually

	case VotingStartPayload:
		v.Status = StatusVoting
		v.CurrentSpeakerID = ""

	case VotingPayload:
		v.CurrentSpeakerID = data.ParticipantID

	case model.Vote:
		v.Votes = append(append([]model.Vote(nil), v.Votes...), data)

	case DebateEndPayload:
		v.Status = StatusConcluded
		v.Consensus = data.Consensus
		v.Scores = data.Scores
		v.CurrentSpeakerID = ""

	case ErrorPayload:
		v.Status = StatusError
		v.Error = data.Message

	case HeartbeatPayload:
		// keep-alive only
	}
	return v
}

func withSentiment(in map[string]sentiment.Distribution, participantID string, dist sentiment.Distribution) map[string]sentiment.Distribution {
	out := make(map[string]sentiment.Distribution, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[participantID] = dist
	return out
}

func cloneMessages(in []ViewMessage) []ViewMessage {
	out := make([]ViewMessage, len(in))
	copy(out, in)
	return out
}

func updateMessage(in []ViewMessage, id string, fn func(*ViewMessage)) []ViewMessage {
	out := cloneMessages(in)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
			return out
		}
	}
	return out
}

func cloneExchanges(in []ViewExchange) []ViewExchange {
	out := make([]ViewExchange, len(in))
	copy(out, in)
	return out
}

func updateExchange(in []ViewExchange, id string, fn func(*ViewExchange)) []ViewExchange {
	out := cloneExchanges(in)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
			return out
		}
	}
	return out
}
