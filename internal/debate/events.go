package debate

import (
	"llmcouncil/internal/model"
	"llmcouncil/internal/sentiment"
)

// Event names form the transport vocabulary. The client reducer and the SSE
// writer both depend on these exact strings.
const (
	EventDebateStart = "debate-start"
	EventRoundStart  = "round-start"
	EventRoundEnd    = "round-end"

	EventDevilsAdvocate  = "devils-advocate"
	EventSpeaking        = "speaking"
	EventChunk           = "chunk"
	EventSentiment       = "sentiment"
	EventMessageComplete = "message-complete"

	EventCrossExamStart            = "cross-exam-start"
	EventCrossExamQuestion         = "cross-exam-question"
	EventCrossExamQuestionStream   = "cross-exam-question-stream"
	EventCrossExamQuestionComplete = "cross-exam-question-complete"
	EventCrossExamAnswer           = "cross-exam-answer"
	EventCrossExamAnswerStream     = "cross-exam-answer-stream"
	EventCrossExamAnswerComplete   = "cross-exam-answer-complete"
	EventCrossExamEnd              = "cross-exam-end"

	EventVotingStart = "voting-start"
	EventVoting      = "voting"
	EventVote        = "vote"
	EventDebateEnd   = "debate-end"

	EventHeartbeat = "heartbeat"
	EventError     = "error"
)

// Event is one entry of the ordered, append-only lifecycle feed.
type Event struct {
	Name string
	Data interface{}
}

// Sink receives events in emission order. A sink error means the consumer is
// gone; the orchestrator stops driving the session forward when it sees one.
type Sink func(Event) error

type DebateStartPayload struct {
	Question               string                    `json:"question"`
	Participants           []model.PublicParticipant `json:"participants"`
	MaxRounds              int                       `json:"maxRounds"`
	EnableDevilsAdvocate   bool                      `json:"enableDevilsAdvocate"`
	EnableCrossExamination bool                      `json:"enableCrossExamination"`
	EnableWebSearch        bool                      `json:"enableWebSearch"`
}

type RoundPayload struct {
	Round       int `json:"round"`
	TotalRounds int `json:"totalRounds"`
}

type DevilsAdvocatePayload struct {
	ParticipantID string `json:"participantId"`
	Round         int    `json:"round"`
}

type SpeakingPayload struct {
	ParticipantID string `json:"participantId"`
	Round         int    `json:"round"`
	MessageID     string `json:"messageId"`
}

type ChunkPayload struct {
	ParticipantID string `json:"participantId"`
	MessageID     string `json:"messageId"`
	Chunk         string `json:"chunk"`
	FullText      string `json:"fullText"`
}

type SentimentPayload struct {
	ParticipantID string                 `json:"participantId"`
	MessageID     string                 `json:"messageId"`
	Sentiment     sentiment.Distribution `json:"sentiment"`
}

type MessageCompletePayload struct {
	ParticipantID string `json:"participantId"`
	MessageID     string `json:"messageId"`
	Content       string `json:"content"`
	Round         int    `json:"round"`
	Error         bool   `json:"error,omitempty"`
}

type CrossExamStartPayload struct {
	TotalPairs int `json:"totalPairs"`
}

type CrossExamQuestionPayload struct {
	QuestionID string `json:"questionId"`
	AskerID    string `json:"askerId"`
	TargetID   string `json:"targetId"`
}

type CrossExamStreamPayload struct {
	QuestionID string `json:"questionId"`
	Chunk      string `json:"chunk"`
}

type CrossExamQuestionCompletePayload struct {
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
}

type CrossExamAnswerPayload struct {
	QuestionID string `json:"questionId"`
	TargetID   string `json:"targetId"`
}

type CrossExamAnswerCompletePayload struct {
	QuestionID string                 `json:"questionId"`
	Answer     string                 `json:"answer"`
	Sentiment  sentiment.Distribution `json:"sentiment"`
}

type CrossExamEndPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type VotingStartPayload struct {
	TotalParticipants int `json:"totalParticipants"`
}

type VotingPayload struct {
	ParticipantID string `json:"participantId"`
}

type DebateEndPayload struct {
	Consensus     float64              `json:"consensus"`
	TotalMessages int                  `json:"totalMessages"`
	TotalVotes    int                  `json:"totalVotes"`
	Scores        []model.ScoreSummary `json:"scores"`
}

type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
