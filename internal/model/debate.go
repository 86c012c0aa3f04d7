package model

import "time"

// Message is one finalized debate turn. Content is set exactly once, after the
// full stream for the turn completes; the in-flight buffer never lives here.
type Message struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	Content       string    `json:"content"`
	Round         int       `json:"round"`
	Timestamp     time.Time `json:"timestamp"`
}

// Vote is a peer vote cast in the streaming debate mode. VotedForID must never
// equal ParticipantID; Score is bounded to [1,10].
type Vote struct {
	ParticipantID string `json:"participantId"`
	VotedForID    string `json:"votedForId"`
	Position      string `json:"position"`
	Reasoning     string `json:"reasoning"`
	Score         int    `json:"score"`
}

// ConfidenceVote is the batch-mode vote schema: a self-assessed final position
// with a 0-100 confidence. Not interchangeable with the peer-score schema.
type ConfidenceVote struct {
	ParticipantID string `json:"participantId"`
	Position      string `json:"position"`
	Reasoning     string `json:"reasoning"`
	Confidence    int    `json:"confidence"`
}

// CrossExamExchange records one asker->target question/answer pair.
// AskerID != TargetID always.
type CrossExamExchange struct {
	ID       string `json:"id"`
	AskerID  string `json:"askerId"`
	TargetID string `json:"targetId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScoreSummary aggregates the votes one participant received.
type ScoreSummary struct {
	ParticipantID string  `json:"participantId"`
	TotalScore    int     `json:"totalScore"`
	VoteCount     int     `json:"voteCount"`
	AverageScore  float64 `json:"averageScore"`
}

// CompletionRecord is the compact summary published to the message queue when
// a streaming debate terminates normally.
type CompletionRecord struct {
	Question       string    `json:"question"`
	ParticipantIDs []string  `json:"participant_ids"`
	WinnerID       string    `json:"winner_id"`
	Consensus      float64   `json:"consensus"`
	TotalMessages  int       `json:"total_messages"`
	TotalVotes     int       `json:"total_votes"`
	CompletedAt    time.Time `json:"completed_at"`
}
