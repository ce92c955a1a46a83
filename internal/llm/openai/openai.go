// Package openai implements the LLM provider for OpenAI and Azure OpenAI
// deployments.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
)

const (
	defaultModel           = "gpt-4o"
	defaultAzureAPIVersion = "2024-02-15-preview"
)

// Config configures the provider. Setting AzureEndpoint switches to an
// Azure OpenAI deployment addressed by Deployment and APIVersion.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	AzureEndpoint string
	Deployment    string
	APIVersion    string
}

// Provider implements the LLM interface for OpenAI.
type Provider struct {
	client *openai.Client
	model  string
	azure  bool
}

// New creates a new OpenAI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("openai: api key required"))
	}

	if cfg.AzureEndpoint != "" {
		if cfg.Deployment == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("azure: deployment required"))
		}
		clientCfg := openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.AzureEndpoint, "/"))
		clientCfg.APIVersion = cfg.APIVersion
		if clientCfg.APIVersion == "" {
			clientCfg.APIVersion = defaultAzureAPIVersion
		}
		deployment := cfg.Deployment
		clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
		return &Provider{client: openai.NewClientWithConfig(clientCfg), model: deployment, azure: true}, nil
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	if p.azure {
		return "azure"
	}
	return "openai"
}

// Chat sends a chat request to the OpenAI API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == llm.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	// Azure deployments of reasoning models reject max_tokens.
	if p.azure {
		chatReq.MaxCompletionTokens = req.MaxTokensOrDefault()
	} else {
		chatReq.MaxTokens = req.MaxTokensOrDefault()
	}

	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, llm.WrapError(p.Name(), err)
	}

	out := &llm.ChatResponse{
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}
