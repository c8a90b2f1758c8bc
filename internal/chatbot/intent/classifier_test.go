package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

var fixedNow = time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC)

type recordingCompleter struct {
	response string
	err      error
	prompts  []string
}

func (r *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.response, r.err
}

func createTestClassifier(t *testing.T, completer genai.Completer, includeSchema bool) *Classifier {
	c := NewClassifier(completer, Options{MaxInputLength: 255, IncludeSchema: includeSchema}, logger.NewTestLogger(t))
	c.now = func() time.Time { return fixedNow }
	return c
}

func employeesSchema() models.SchemaSnapshot {
	return models.SchemaSnapshot{
		"public": {"employees": {
			Columns:     []models.Column{{Name: "id", Type: "integer"}, {Name: "status", Type: "character varying"}},
			ForeignKeys: []models.ForeignKey{},
		}},
	}
}

func TestClassify_RejectsLongInputWithoutModelCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"ascii", strings.Repeat("a", 256)},
		{"multibyte", strings.Repeat("é", 256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &recordingCompleter{response: `{"intent":"chitchat","answer":"hi","sql_query":null}`}
			mem := memory.New(10)

			got := createTestClassifier(t, completer, true).Classify(context.Background(), tt.input, employeesSchema(), mem)

			assert.Equal(t, models.IntentError, got.Intent)
			assert.Contains(t, got.Answer, "255")
			assert.Nil(t, got.SQLQuery)
			assert.False(t, got.Remembered)
			assert.Empty(t, completer.prompts)
			assert.Equal(t, 0, mem.Len())
		})
	}
}

func TestClassify_AcceptsInputAtLimit(t *testing.T) {
	completer := &recordingCompleter{response: `{"intent":"chitchat","answer":"ok","sql_query":null}`}

	got := createTestClassifier(t, completer, true).Classify(context.Background(), strings.Repeat("é", 255), nil, nil)

	assert.Equal(t, models.IntentChitchat, got.Intent)
	assert.Len(t, completer.prompts, 1)
}

func TestClassify_GenerateSQL(t *testing.T) {
	raw := "```json\n{\"intent\": \"generate_sql\", \"answer\": \"Let me count them.\", \"sql_query\": \"SELECT COUNT(*) AS count FROM employees WHERE status = 'active'\"}\n```"
	completer := &recordingCompleter{response: raw}
	mem := memory.New(10)

	got := createTestClassifier(t, completer, true).Classify(context.Background(), "How many active employees are there?", employeesSchema(), mem)

	assert.Equal(t, models.IntentGenerateSQL, got.Intent)
	sql, ok := got.SQL()
	require.True(t, ok)
	assert.Contains(t, sql, "employees")
	assert.True(t, got.Remembered)

	turns := mem.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "How many active employees are there?", turns[0].Input)
	assert.Equal(t, raw, turns[0].Output)
	assert.Equal(t, fixedNow, turns[0].At)
}

func TestClassify_MalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"truncated", `{"intent": "generate_sql", "answer": "Here`},
		{"plain text", "Sure! There are 3 employees."},
		{"missing answer", `{"intent": "chitchat"}`},
		{"unknown intent", `{"intent": "delete_everything", "answer": "no"}`},
		{"non string sql", `{"intent": "generate_sql", "answer": "x", "sql_query": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.New(10)
			got := createTestClassifier(t, &recordingCompleter{response: tt.response}, true).
				Classify(context.Background(), "hello", nil, mem)

			assert.Equal(t, models.IntentError, got.Intent)
			assert.Equal(t, MalformedAnswer, got.Answer)
			assert.Nil(t, got.SQLQuery)
			assert.Equal(t, 0, mem.Len())
		})
	}
}

func TestClassify_CompletionFailure(t *testing.T) {
	completer := &recordingCompleter{err: fmt.Errorf("%w: deadline exceeded", genai.ErrCompletionTimeout)}
	mem := memory.New(10)

	got := createTestClassifier(t, completer, true).Classify(context.Background(), "hello", nil, mem)

	assert.Equal(t, models.IntentError, got.Intent)
	assert.Equal(t, UnavailableAnswer, got.Answer)
	assert.False(t, got.Remembered)
	assert.Equal(t, 0, mem.Len())
}

func TestClassify_SchemaToggle(t *testing.T) {
	response := `{"intent":"chitchat","answer":"Hello!","sql_query":null}`

	t.Run("schema included", func(t *testing.T) {
		completer := &recordingCompleter{response: response}
		createTestClassifier(t, completer, true).Classify(context.Background(), "hi", employeesSchema(), nil)
		require.Len(t, completer.prompts, 1)
		assert.Contains(t, completer.prompts[0], `Database schema: {"public":{"employees"`)
	})

	t.Run("empty schema still classifies", func(t *testing.T) {
		completer := &recordingCompleter{response: response}
		got := createTestClassifier(t, completer, true).Classify(context.Background(), "hi", nil, nil)
		assert.Equal(t, models.IntentChitchat, got.Intent)
		assert.Contains(t, completer.prompts[0], "Database schema: {}")
	})

	t.Run("schema omitted", func(t *testing.T) {
		completer := &recordingCompleter{response: response}
		createTestClassifier(t, completer, false).Classify(context.Background(), "hi", employeesSchema(), nil)
		assert.NotContains(t, completer.prompts[0], "Database schema")
	})
}

func TestClassify_PromptCarriesMemoryAndTime(t *testing.T) {
	mem := memory.New(10)
	mem.Append("hello", `{"intent":"chitchat"}`, fixedNow.Add(-time.Minute))
	completer := &recordingCompleter{response: `{"intent":"unrecognized","answer":"I can only help with the database.","sql_query":null}`}

	got := createTestClassifier(t, completer, true).Classify(context.Background(), "what's the weather?", nil, mem)

	assert.Equal(t, models.IntentUnrecognized, got.Intent)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "Current time is 2024-05-06T14:00:00Z")
	assert.Contains(t, prompt, "[2024-05-06T13:59:00Z] User: hello")
	assert.Contains(t, prompt, "[2024-05-06T13:59:00Z] Assistant: {\"intent\":\"chitchat\"}")
	assert.Contains(t, prompt, "User query: what's the weather?")
	assert.Equal(t, 2, mem.Len())
}

func TestParseResponse_FenceVariants(t *testing.T) {
	body := `{"intent":"database_insight","answer":"There are 4 tables.","sql_query":null}`
	for _, raw := range []string{
		body,
		"```json\n" + body + "\n```",
		"'''json\n" + body + "\n'''",
		"```\n" + body + "\n```",
		"  \n" + body + "\n  ",
	} {
		got, err := ParseResponse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, models.IntentDatabaseInsight, got.Intent)
		assert.Nil(t, got.SQLQuery)
	}

	_, err := ParseResponse("```json\n{}\n```")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestParseResponse_IntentEnum(t *testing.T) {
	for _, in := range models.Intents {
		got, err := ParseResponse(fmt.Sprintf(`{"intent":%q,"answer":"ok"}`, in))
		require.NoError(t, err, in)
		assert.Equal(t, in, got.Intent)
	}

	_, err := ParseResponse(`{"intent":"delete_rows","answer":"ok"}`)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}
