package ai

import (
	"context"

	"llmcouncil/internal/search"
)

// Provider tags form a closed set, resolved once at configuration load.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
)

// ModelRef names a provider/model pair. Opaque to the debate core.
type ModelRef struct {
	Provider string
	Model    string
}

// GenerateRequest is one prompt to a model. EnableSearch only takes effect on
// providers whose wire protocol supports tool invocation.
type GenerateRequest struct {
	System       string
	Prompt       string
	MaxTokens    int
	Temperature  float64
	EnableSearch bool
}

// Searcher is the tool capability exposed to models. Implementations must not
// fail; degraded results are returned in-band.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Result
}

// ChatMessage is one turn on the OpenAI-compatible wire. Tool fields are only
// populated during a search tool loop.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
