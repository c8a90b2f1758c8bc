package models

import "encoding/json"

type EnvelopeType string

const (
	EnvelopeCount     EnvelopeType = "count"
	EnvelopeResultSet EnvelopeType = "result_set"
	EnvelopeMessage   EnvelopeType = "message"
	EnvelopeError     EnvelopeType = "error"
)

// QueryResultEnvelope is the typed outcome of executing one statement.
// Only the fields of the active variant are meaningful.
type QueryResultEnvelope struct {
	Type     EnvelopeType
	Value    interface{}
	Columns  []string
	Rows     []map[string]interface{}
	RowCount int
	Query    string
	Text     string
}

func NewCountEnvelope(value interface{}) QueryResultEnvelope {
	return QueryResultEnvelope{Type: EnvelopeCount, Value: value}
}

func NewResultSetEnvelope(columns []string, rows []map[string]interface{}, query string) QueryResultEnvelope {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return QueryResultEnvelope{
		Type:     EnvelopeResultSet,
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
		Query:    query,
	}
}

func NewMessageEnvelope(text string) QueryResultEnvelope {
	return QueryResultEnvelope{Type: EnvelopeMessage, Text: text}
}

func NewErrorEnvelope(message string) QueryResultEnvelope {
	return QueryResultEnvelope{Type: EnvelopeError, Text: message}
}

func (e QueryResultEnvelope) IsError() bool {
	return e.Type == EnvelopeError
}

func (e QueryResultEnvelope) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EnvelopeCount:
		return json.Marshal(struct {
			Type  EnvelopeType `json:"type"`
			Value interface{}  `json:"value"`
		}{e.Type, e.Value})
	case EnvelopeResultSet:
		return json.Marshal(struct {
			Type     EnvelopeType             `json:"type"`
			Columns  []string                 `json:"columns"`
			Rows     []map[string]interface{} `json:"rows"`
			RowCount int                      `json:"row_count"`
			Query    string                   `json:"query"`
		}{e.Type, e.Columns, e.Rows, e.RowCount, e.Query})
	case EnvelopeMessage:
		return json.Marshal(struct {
			Type    EnvelopeType `json:"type"`
			Message string       `json:"message"`
		}{e.Type, e.Text})
	default:
		return json.Marshal(struct {
			Type  EnvelopeType `json:"type"`
			Error string       `json:"error"`
		}{EnvelopeError, e.Text})
	}
}
