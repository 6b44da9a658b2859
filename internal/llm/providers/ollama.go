// File path: internal/llm/providers/ollama.go
package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	ollama "github.com/JexSrs/go-ollama"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
)

// OllamaProvider runs completions against a local Ollama host. Useful when
// no Azure deployment is reachable; JSON discipline then rests on the
// prompts, so callers still validate the payload.
type OllamaProvider struct {
	client *ollama.Ollama
	model  string
}

func NewOllamaProvider(host, model string) (*OllamaProvider, error) {
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model required")
	}
	logger := common.Logger()
	logger.Info("llm: ollama provider configured", "host", host, "model", model)
	return &OllamaProvider{client: ollama.New(*parsed), model: model}, nil
}

func (o *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	var system, prompt []string
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		prompt = append(prompt, msg.Content)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := o.client.Generate(
		o.client.Generate.WithModel(o.model),
		o.client.Generate.WithSystem(strings.Join(system, "\n\n")),
		o.client.Generate.WithPrompt(strings.Join(prompt, "\n\n")),
	)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if !res.Done {
		return "", fmt.Errorf("ollama response not complete")
	}
	if strings.TrimSpace(res.Response) == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	return res.Response, nil
}

func (o *OllamaProvider) Name() string {
	return "ollama"
}
