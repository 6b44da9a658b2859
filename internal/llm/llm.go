// File path: internal/llm/llm.go
package llm

import (
	"errors"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
	"github.com/nicodishanthj/Cobalt_phase1/internal/config"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider selects the completion backend from the configuration: a
// complete Azure OpenAI block wins, then an Ollama host, then the offline
// stub.
func NewProvider(cfg config.Config) Provider {
	logger := common.Logger()
	if cfg.Azure.Complete() {
		opts := []option.RequestOption{
			azure.WithEndpoint(cfg.Azure.Endpoint, cfg.Azure.APIVersion),
			azure.WithAPIKey(cfg.Azure.APIKey),
		}
		if timeoutStr := strings.TrimSpace(os.Getenv("AZURE_OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
			timeout, err := time.ParseDuration(timeoutStr)
			if err != nil {
				logger.Warn("llm: invalid AZURE_OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
			} else {
				logger.Info("llm: configuring client with custom HTTP timeout", "timeout", timeout)
				opts = append(opts, option.WithRequestTimeout(timeout))
			}
		}
		client := openai.NewClient(opts...)
		logger.Info("llm: azure openai provider selected", "endpoint", cfg.Azure.Endpoint)
		return providers.NewOpenAIProvider(client, cfg.Azure.Deployment, cfg.MaxTokens)
	}
	if cfg.OllamaHost != "" || cfg.OllamaModel != "" {
		host := cfg.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		provider, err := providers.NewOllamaProvider(host, cfg.OllamaModel)
		if err != nil {
			logger.Warn("llm: ollama configuration rejected; falling back to local provider", "error", err)
		} else {
			logger.Info("llm: ollama provider selected")
			return provider
		}
	}
	logger.Warn("llm: no model endpoint configured; falling back to local provider")
	return providers.NewLocalProvider()
}

func NormalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	for i := range messages {
		messages[i].Role = strings.ToLower(messages[i].Role)
	}
	return messages, nil
}
