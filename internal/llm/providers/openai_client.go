// File path: internal/llm/providers/openai_client.go
package providers

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
)

// OpenAIProvider drives an Azure OpenAI chat deployment in JSON mode. The
// deployment name doubles as the model parameter, matching Azure routing.
type OpenAIProvider struct {
	client     openai.Client
	deployment string
	maxTokens  int
}

func NewOpenAIProvider(client openai.Client, deployment string, maxTokens int) *OpenAIProvider {
	if maxTokens <= 0 {
		maxTokens = 12000
	}
	logger := common.Logger()
	logger.Info("llm: azure openai provider configured", "deployment", deployment, "max_tokens", maxTokens)
	return &OpenAIProvider{client: client, deployment: deployment, maxTokens: maxTokens}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	logger := common.Logger()
	logger.Debug("llm: sending chat completion request", "deployment", o.deployment, "messages", len(messages))
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.deployment),
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(o.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	logger.Debug("llm: chat completion succeeded")
	return content, nil
}

func (o *OpenAIProvider) Name() string {
	return "azure-openai"
}
