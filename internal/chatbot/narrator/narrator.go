// Package narrator turns a query result envelope into a short natural
// language answer with a second model call.
package narrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

type Narrator struct {
	completer genai.Completer
	logger    logger.Logger
}

func New(completer genai.Completer, log logger.Logger) *Narrator {
	return &Narrator{completer: completer, logger: log}
}

// BuildPrompt embeds the serialized envelope and the user's question.
func BuildPrompt(env models.QueryResultEnvelope, question string) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Based on these SQL results: %s, analyze and answer the following question: %s\n"+
			"Please be concise and focus on the most relevant insights.\n"+
			`Respond with a JSON object of the form {"answer": "your answer"}.`,
		data, question), nil
}

// Narrate returns the model's answer. A response that is not the expected
// JSON object is returned as fence-stripped text; only completion failures
// are returned as errors.
func (n *Narrator) Narrate(ctx context.Context, env models.QueryResultEnvelope, question string) (string, error) {
	prompt, err := BuildPrompt(env, question)
	if err != nil {
		return "", err
	}

	raw, err := n.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	text := genai.StripCodeFence(raw)
	var parsed struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil || parsed.Answer == nil {
		n.logger.Info("narration was not a JSON answer, using raw text", nil)
		return text, nil
	}
	return *parsed.Answer, nil
}
