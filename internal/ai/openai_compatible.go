package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxToolIterations bounds the search tool loop so a model cannot spin on the
// tool forever without producing an answer.
const maxToolIterations = 3

type EndpointConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAICompatibleClient speaks the OpenAI chat-completions wire dialect,
// which also covers OpenRouter and Ollama's /v1 compatibility endpoint.
type OpenAICompatibleClient struct {
	httpClient *http.Client
	searcher   Searcher
}

func NewOpenAICompatibleClient(searcher Searcher) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		searcher:   searcher,
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg EndpointConfig, req GenerateRequest) (string, error) {
	return c.StreamComplete(ctx, cfg, req, func(string) error { return nil })
}

// StreamComplete streams a completion, invoking onChunk for every text delta.
// When req.EnableSearch is set, the search tool is offered to the model and
// tool-call rounds are executed transparently; only final text is returned.
func (c *OpenAICompatibleClient) StreamComplete(
	ctx context.Context,
	cfg EndpointConfig,
	req GenerateRequest,
	onChunk func(chunk string) error,
) (string, error) {
	messages := []ChatMessage{}
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: req.Prompt})

	var full strings.Builder
	for iteration := 0; iteration < maxToolIterations; iteration++ {
		text, calls, err := c.streamOnce(ctx, cfg, req, messages, onChunk)
		if err != nil {
			return "", err
		}
		full.WriteString(text)

		if len(calls) == 0 || c.searcher == nil {
			return full.String(), nil
		}

		// Tool round: run each requested search and feed results back. Tool
		// results are not part of the debate record, only the final text is.
		messages = append(messages, ChatMessage{
			Role:      "assistant",
			Content:   text,
			ToolCalls: calls,
		})
		for _, call := range calls {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				args.Query = req.Prompt
			}
			results := c.searcher.Search(ctx, args.Query)
			payload, err := json.Marshal(results)
			if err != nil {
				payload = []byte(`[{"title":"Search unavailable","snippet":"Could not retrieve search results."}]`)
			}
			messages = append(messages, ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    string(payload),
			})
		}
	}
	return full.String(), nil
}

func (c *OpenAICompatibleClient) streamOnce(
	ctx context.Context,
	cfg EndpointConfig,
	req GenerateRequest,
	messages []ChatMessage,
	onChunk func(chunk string) error,
) (string, []ToolCall, error) {
	reqBody := map[string]interface{}{
		"model":    cfg.Model,
		"messages": messages,
		"stream":   true,
	}
	if req.MaxTokens > 0 {
		reqBody["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		reqBody["temperature"] = req.Temperature
	}
	if req.EnableSearch && c.searcher != nil {
		reqBody["tools"] = []map[string]interface{}{searchToolSchema()}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("marshal llm stream request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", nil, fmt.Errorf("build llm stream request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("llm stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("llm stream status %d: %s", resp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	pendingCalls := map[int]*ToolCall{}
	finishedWithTools := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content   string `json:"content"`
					ToolCalls []struct {
						Index    int    `json:"index"`
						ID       string `json:"id"`
						Function struct {
							Name      string `json:"name"`
							Arguments string `json:"arguments"`
						} `json:"function"`
					} `json:"tool_calls"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		for _, tc := range choice.Delta.ToolCalls {
			call, ok := pendingCalls[tc.Index]
			if !ok {
				call = &ToolCall{Type: "function"}
				pendingCalls[tc.Index] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
		if choice.FinishReason == "tool_calls" {
			finishedWithTools = true
		}

		text := choice.Delta.Content
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("scan llm stream failed: %w", err)
	}

	if !finishedWithTools || len(pendingCalls) == 0 {
		return full.String(), nil, nil
	}
	calls := make([]ToolCall, 0, len(pendingCalls))
	for i := 0; i < len(pendingCalls); i++ {
		if call, ok := pendingCalls[i]; ok {
			calls = append(calls, *call)
		}
	}
	return full.String(), calls, nil
}

func searchToolSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        "search",
			"description": "Search the web for current information. Returns a small ranked list of results.",
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type": "string",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}
