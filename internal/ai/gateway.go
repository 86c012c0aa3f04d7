package ai

import (
	"context"
	"fmt"

	"llmcouncil/internal/config"
)

// Gateway fronts the closed provider set behind one capability surface:
// blocking generate, incremental generate, and a tool-support query. Endpoints
// are resolved from config once at construction, never per call.
type Gateway struct {
	endpoints map[string]config.ProviderEndpoint
	openai    *OpenAICompatibleClient
	anthropic *AnthropicClient
}

func NewGateway(cfg config.LLMConfig, searcher Searcher) *Gateway {
	return &Gateway{
		endpoints: map[string]config.ProviderEndpoint{
			ProviderOpenAI:     cfg.OpenAI,
			ProviderOpenRouter: cfg.OpenRouter,
			ProviderAnthropic:  cfg.Anthropic,
			ProviderOllama:     cfg.Ollama,
		},
		openai:    NewOpenAICompatibleClient(searcher),
		anthropic: NewAnthropicClient(),
	}
}

func (g *Gateway) Complete(ctx context.Context, ref ModelRef, req GenerateRequest) (string, error) {
	endpoint, err := g.resolve(ref)
	if err != nil {
		return "", err
	}
	if ref.Provider == ProviderAnthropic {
		return g.anthropic.Complete(ctx, endpoint, req)
	}
	return g.openai.Complete(ctx, endpoint, req)
}

func (g *Gateway) StreamComplete(ctx context.Context, ref ModelRef, req GenerateRequest, onChunk func(chunk string) error) (string, error) {
	endpoint, err := g.resolve(ref)
	if err != nil {
		return "", err
	}
	if ref.Provider == ProviderAnthropic {
		return g.anthropic.StreamComplete(ctx, endpoint, req, onChunk)
	}
	return g.openai.StreamComplete(ctx, endpoint, req, onChunk)
}

// SupportsTools reports whether the provider/model combination can invoke the
// search tool. Static per provider dialect; local ollama models do not get
// tools even though they share the OpenAI wire format.
func (g *Gateway) SupportsTools(provider, model string) bool {
	switch provider {
	case ProviderOpenAI, ProviderOpenRouter:
		return true
	default:
		return false
	}
}

func (g *Gateway) resolve(ref ModelRef) (EndpointConfig, error) {
	endpoint, ok := g.endpoints[ref.Provider]
	if !ok {
		return EndpointConfig{}, fmt.Errorf("unknown provider: %s", ref.Provider)
	}
	return EndpointConfig{
		BaseURL: endpoint.BaseURL,
		APIKey:  endpoint.APIKey,
		Model:   ref.Model,
	}, nil
}
