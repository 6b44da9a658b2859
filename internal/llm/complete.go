// File path: internal/llm/complete.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 2 * time.Second
)

// CompletionOptions bounds the retry loop around a single completion.
type CompletionOptions struct {
	// MaxAttempts caps how many times the provider is invoked. Zero uses
	// the default (3).
	MaxAttempts int
	// RetryBackoff is the delay before the second attempt; it doubles for
	// each attempt after that. Zero uses the default (2s).
	RetryBackoff time.Duration
}

// CompleteJSON invokes the provider and returns the response as a raw JSON
// object. Transient failures are retried with doubling backoff until the
// attempt cap; the sleep is context-cancellable. Markdown fences around the
// payload are stripped, and anything that is not a JSON object is an error.
func CompleteJSON(ctx context.Context, provider Provider, messages []Message, opts CompletionOptions) (json.RawMessage, error) {
	if provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	normalized, err := NormalizeMessages(messages)
	if err != nil {
		return nil, err
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	logger := common.Logger()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff << (attempt - 1)
			logger.Warn("llm: completion retry", "attempt", attempt+1, "max", attempts, "backoff", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		content, err := provider.Chat(ctx, normalized)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		payload, err := parseJSONObject(content)
		if err != nil {
			lastErr = err
			continue
		}
		return payload, nil
	}
	return nil, fmt.Errorf("completion failed after %d attempts: %w", attempts, lastErr)
}

func parseJSONObject(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("model returned empty content")
	}
	trimmed = stripFences(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("model response is not a JSON object")
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("model returned malformed JSON")
	}
	return json.RawMessage(trimmed), nil
}

// stripFences removes a surrounding ```json ... ``` block. Some models wrap
// JSON-mode output in fences despite instructions.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	trimmed := strings.TrimPrefix(content, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
