package intent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/validation"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

var ErrMalformedResponse = errors.New("MODEL_RESPONSE_MALFORMED")

var envelopeSchema = validation.MustCompile(fmt.Sprintf(`{
	"type": "object",
	"required": ["intent", "answer"],
	"properties": {
		"intent": {"enum": %s},
		"answer": {"type": "string"},
		"sql_query": {"type": ["string", "null"]}
	}
}`, intentEnum()))

func intentEnum() string {
	data, err := json.Marshal(models.Intents)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// ParseResponse strips any code fence, decodes the JSON object and checks its
// shape. The intent value itself is taken as given.
func ParseResponse(raw string) (models.IntentResult, error) {
	body := []byte(genai.StripCodeFence(raw))

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.IntentResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	res, err := envelopeSchema.ValidateValue(doc)
	if err != nil {
		return models.IntentResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !res.Valid {
		return models.IntentResult{}, fmt.Errorf("%w: %s", ErrMalformedResponse, res.Summary())
	}

	var result models.IntentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.IntentResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}
