// Package genai provides the text-completion capability used by the chatbot:
// one prompt in, one text response out.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/config"
	commonhttp "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/http"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/metrics"
)

var (
	ErrCompletionTimeout = errors.New("LLM_TIMEOUT")
	ErrCompletionFailed  = errors.New("LLM_COMPLETION_FAILED")
	ErrEmptyCompletion   = errors.New("LLM_EMPTY_COMPLETION")
)

// Completer is a single request/response text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the provider selected in cfg.
func New(cfg config.GenAIConfig) (Completer, error) {
	timeout := config.GetDuration(cfg.Timeout)
	client := commonhttp.NewClient(timeout, cfg.MaxRetries)

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg, client), nil
	case "gemini":
		return NewGemini(cfg, client), nil
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}
}

// mapTransportError folds http client errors into the package sentinels.
func mapTransportError(err error) error {
	if errors.Is(err, commonhttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCompletionTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrCompletionFailed, err)
}

// Instrumented records call counts and latency under purpose.
func Instrumented(next Completer, purpose string) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		text, err := next.Complete(ctx, prompt)
		metrics.LLMRequestDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())

		status := "ok"
		switch {
		case errors.Is(err, ErrCompletionTimeout):
			status = "timeout"
		case err != nil:
			status = "error"
		}
		metrics.LLMRequests.WithLabelValues(purpose, status).Inc()
		return text, err
	})
}

// StripCodeFence removes a Markdown code fence (``` or ''' with an optional
// json tag) wrapped around a model response.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "'''json", "```JSON", "'''JSON", "```", "'''"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	for _, suffix := range []string{"```", "'''"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	return strings.TrimSpace(s)
}
