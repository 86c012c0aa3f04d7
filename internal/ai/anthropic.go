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

const anthropicVersion = "2023-06-01"

// AnthropicClient speaks the native Anthropic messages API. Tool invocation is
// not wired for this dialect; SupportsTools reports false for it.
type AnthropicClient struct {
	httpClient *http.Client
}

func NewAnthropicClient() *AnthropicClient {
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, cfg EndpointConfig, req GenerateRequest) (string, error) {
	resp, err := c.do(ctx, cfg, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response failed: %w", err)
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse anthropic json failed: %w", err)
	}
	var full strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	return full.String(), nil
}

func (c *AnthropicClient) StreamComplete(
	ctx context.Context,
	cfg EndpointConfig,
	req GenerateRequest,
	onChunk func(chunk string) error,
) (string, error) {
	resp, err := c.do(ctx, cfg, req, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Type == "message_stop" {
			break
		}
		if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" {
			continue
		}
		text := event.Delta.Text
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan anthropic stream failed: %w", err)
	}
	return full.String(), nil
}

func (c *AnthropicClient) do(ctx context.Context, cfg EndpointConfig, req GenerateRequest, stream bool) (*http.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024 // the messages API requires max_tokens
	}
	reqBody := map[string]interface{}{
		"model":      cfg.Model,
		"max_tokens": maxTokens,
		"stream":     stream,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if strings.TrimSpace(req.System) != "" {
		reqBody["system"] = req.System
	}
	if req.Temperature > 0 {
		reqBody["temperature"] = req.Temperature
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(raw))
	}
	return resp, nil
}
