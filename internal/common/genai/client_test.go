package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/config"
)

func createTestConfig(provider, baseURL string) config.GenAIConfig {
	return config.GenAIConfig{
		Provider:    provider,
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.1,
		Timeout:     2000,
		MaxRetries:  1,
	}
}

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 0.1, req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer server.Close()

	c, err := New(createTestConfig("openai", server.URL))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c, err := New(createTestConfig("openai", server.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 0.1, req.GenerationConfig.Temperature)

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi "},{"text":"there"}]}}]}`))
	}))
	defer server.Close()

	c, err := New(createTestConfig("gemini", server.URL))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestComplete_ErrorMapping(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c, _ := New(createTestConfig("openai", server.URL))
		_, err := c.Complete(context.Background(), "hello")
		assert.True(t, errors.Is(err, ErrCompletionFailed))
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c, _ := New(createTestConfig("gemini", server.URL))
		_, err := c.Complete(ctx, "hello")
		assert.True(t, errors.Is(err, ErrCompletionTimeout))
	})
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(createTestConfig("bard", "http://localhost"))
	assert.Error(t, err)
}

func TestInstrumented_PassesThrough(t *testing.T) {
	inner := CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})

	text, err := Instrumented(inner, "test").Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "echo: x", text)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json backticks", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare backticks", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json quotes", "'''json\n{\"a\":1}\n'''", `{"a":1}`},
		{"bare quotes", "'''{\"a\":1}'''", `{"a":1}`},
		{"surrounding whitespace", "  \n```json {\"a\":1} ```  \n", `{"a":1}`},
		{"only opening fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"prose untouched", "There are 3 employees.", "There are 3 employees."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
