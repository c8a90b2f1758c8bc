// Package audit records every statement the chatbot executed or refused.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

// Entry is one audited statement.
type Entry struct {
	ID             string              `json:"id"`
	RequestID      string              `json:"requestId,omitempty"`
	ConversationID string              `json:"conversationId"`
	Question       string              `json:"question"`
	Intent         models.Intent       `json:"intent"`
	SQL            string              `json:"sql"`
	Outcome        models.EnvelopeType `json:"outcome"`
	RowCount       int                 `json:"rowCount"`
	Error          string              `json:"error,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

// NewEntry derives outcome, row count and error from env. A connection
// failure is passed as connErr with an empty envelope.
func NewEntry(requestID, conversationID, question string, intent models.Intent, sql string, env models.QueryResultEnvelope, connErr error) Entry {
	e := Entry{
		ID:             uuid.NewString(),
		RequestID:      requestID,
		ConversationID: conversationID,
		Question:       question,
		Intent:         intent,
		SQL:            sql,
		Outcome:        env.Type,
		Timestamp:      time.Now().UTC(),
	}
	switch {
	case connErr != nil:
		e.Outcome = models.EnvelopeError
		e.Error = connErr.Error()
	case env.Type == models.EnvelopeError:
		e.Error = env.Text
	case env.Type == models.EnvelopeResultSet:
		e.RowCount = env.RowCount
	case env.Type == models.EnvelopeCount:
		e.RowCount = 1
	}
	return e
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries. Used when no audit index is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{client: client, index: index}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, entry Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithDocumentID(entry.ID),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index audit entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit entry: %s", res.Status())
	}
	return nil
}
