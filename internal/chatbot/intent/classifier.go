// Package intent turns one user utterance into a typed IntentResult with a
// single language-model round trip.
package intent

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/metrics"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

const DefaultMaxInputLength = 255

const (
	MalformedAnswer   = "I'm having trouble generating a proper response. Please try rephrasing."
	UnavailableAnswer = "I'm having trouble connecting to the assistant right now. Please try again."
)

type Options struct {
	MaxInputLength int
	IncludeSchema  bool
}

// Classification is the outcome of Classify. Remembered reports whether a
// turn was appended to the memory passed in.
type Classification struct {
	models.IntentResult
	Remembered bool
}

type Classifier struct {
	completer genai.Completer
	opts      Options
	logger    logger.Logger
	now       func() time.Time
}

func NewClassifier(completer genai.Completer, opts Options, log logger.Logger) *Classifier {
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	return &Classifier{completer: completer, opts: opts, logger: log, now: time.Now}
}

// Classify never fails: every error path yields intent=error with a
// user-facing answer. mem may be nil.
func (c *Classifier) Classify(ctx context.Context, input string, schema models.SchemaSnapshot, mem *memory.ConversationMemory) Classification {
	if n := utf8.RuneCountInString(input); n > c.opts.MaxInputLength {
		c.logger.Info("input rejected", map[string]interface{}{"length": n, "limit": c.opts.MaxInputLength})
		return c.failed(fmt.Sprintf(
			"Your input exceeds the maximum length of %d characters. Please shorten your message.",
			c.opts.MaxInputLength))
	}

	if !c.opts.IncludeSchema {
		schema = nil
	} else if schema == nil {
		schema = models.SchemaSnapshot{}
	}

	now := c.now()
	prompt, err := BuildPrompt(input, schema, mem, now)
	if err != nil {
		c.logger.Error("failed to build classification prompt", map[string]interface{}{"error": err})
		return c.failed(MalformedAnswer)
	}

	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("classification completion failed", map[string]interface{}{"error": err})
		return c.failed(UnavailableAnswer)
	}

	result, err := ParseResponse(raw)
	if err != nil {
		c.logger.Warn("classification response malformed", map[string]interface{}{"error": err})
		return c.failed(MalformedAnswer)
	}

	if mem != nil {
		mem.Append(input, raw, now)
	}
	metrics.ChatbotIntents.WithLabelValues(string(result.Intent)).Inc()

	return Classification{IntentResult: result, Remembered: mem != nil}
}

func (c *Classifier) failed(answer string) Classification {
	metrics.ChatbotIntents.WithLabelValues(string(models.IntentError)).Inc()
	return Classification{IntentResult: models.IntentResult{Intent: models.IntentError, Answer: answer}}
}
