// Package title names a conversation once, from its first exchange.
package title

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
)

const (
	DefaultMaxWords  = 10
	DefaultMaxLength = 255
)

var ErrEmptyTitle = errors.New("model returned an empty title")

const quoteChars = "\"'`“”‘’«»"

type Synthesizer struct {
	completer genai.Completer
	maxWords  int
	maxLength int
}

func NewSynthesizer(completer genai.Completer, maxWords, maxLength int) *Synthesizer {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Synthesizer{completer: completer, maxWords: maxWords, maxLength: maxLength}
}

func (s *Synthesizer) prompt(userMessage, botMessage string) string {
	return fmt.Sprintf(
		"Generate a short title of at most %d words for a conversation that starts with the exchange below. "+
			"Reply with the title only, without quotes or punctuation at the end.\n\nUser: %s\nAssistant: %s",
		s.maxWords, userMessage, botMessage)
}

// Synthesize returns a cleaned title or TITLE_GENERATION_FAILED.
func (s *Synthesizer) Synthesize(ctx context.Context, userMessage, botMessage string) (string, error) {
	raw, err := s.completer.Complete(ctx, s.prompt(userMessage, botMessage))
	if err != nil {
		return "", apperrors.NewTitleGenerationFailedError(err)
	}

	t := s.clean(raw)
	if t == "" {
		return "", apperrors.NewTitleGenerationFailedError(ErrEmptyTitle)
	}
	return t, nil
}

// clean keeps the first non-empty line, strips surrounding quotes and a
// "Title:" label, caps the word count and truncates to maxLength runes.
func (s *Synthesizer) clean(raw string) string {
	text := genai.StripCodeFence(raw)

	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	if len(line) >= 6 && strings.EqualFold(line[:6], "title:") {
		line = strings.TrimSpace(line[6:])
	}
	line = strings.Trim(line, quoteChars+" \t")

	if words := strings.Fields(line); len(words) > s.maxWords {
		line = strings.Join(words[:s.maxWords], " ")
	}

	if utf8.RuneCountInString(line) > s.maxLength {
		line = strings.TrimSpace(string([]rune(line)[:s.maxLength]))
	}
	return line
}
