package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmcouncil/internal/debate"
)

func TestEventWriterFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := newEventWriter(rec)
	require.NoError(t, err)

	err = ew.Send(debate.Event{
		Name: debate.EventChunk,
		Data: debate.ChunkPayload{
			ParticipantID: "alice",
			MessageID:     "m1",
			Chunk:         "Hi",
			FullText:      "Hi",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t,
		"event: chunk\ndata: {\"participantId\":\"alice\",\"messageId\":\"m1\",\"chunk\":\"Hi\",\"fullText\":\"Hi\"}\n\n",
		rec.Body.String())
}

func TestEventWriterMultilineDataStaysOneFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := newEventWriter(rec)
	require.NoError(t, err)

	require.NoError(t, ew.Send(debate.Event{
		Name: debate.EventChunk,
		Data: debate.ChunkPayload{MessageID: "m1", FullText: "line one\nline two"},
	}))

	// JSON encoding escapes the newline, so the frame has exactly one data line.
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "data: "))
	assert.Contains(t, body, `line one\nline two`)
}

func TestEventWriterHeartbeat(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := newEventWriter(rec)
	require.NoError(t, err)

	ew.StartHeartbeat(5 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	ew.StopHeartbeat()

	body := rec.Body.String()
	assert.Contains(t, body, "event: heartbeat\n")
	assert.Contains(t, body, `"timestamp"`)

	// Nothing interleaves after the stop returns.
	require.NoError(t, ew.Send(debate.Event{Name: debate.EventDebateEnd, Data: debate.DebateEndPayload{}}))
	tail := rec.Body.String()[len(body):]
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, rec.Body.String()[len(body):], tail)
	assert.NotContains(t, tail, "heartbeat")
}

func TestEventWriterStopHeartbeatIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := newEventWriter(rec)
	require.NoError(t, err)

	ew.StartHeartbeat(time.Millisecond)
	ew.StopHeartbeat()
	ew.StopHeartbeat()
}

func TestEventWriterStopWithoutStart(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := newEventWriter(rec)
	require.NoError(t, err)

	ew.StopHeartbeat()
}
