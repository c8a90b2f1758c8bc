package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// DefaultSearchSize caps Search when size is not positive.
const DefaultSearchSize = 20

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source Entry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchResult is one page of audit entries, newest first.
type SearchResult struct {
	Entries   []Entry
	TotalHits int64
	Took      int64
}

// Search returns the most recent entries recorded for conversationID.
func (r *ElasticsearchRecorder) Search(ctx context.Context, conversationID string, size int) (*SearchResult, error) {
	if size <= 0 {
		size = DefaultSearchSize
	}

	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"conversationId.keyword": conversationID,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode audit query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search audit index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search audit index: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode audit search: %w", err)
	}

	out := &SearchResult{
		Entries:   make([]Entry, 0, len(parsed.Hits.Hits)),
		TotalHits: parsed.Hits.Total.Value,
		Took:      parsed.Took,
	}
	for _, hit := range parsed.Hits.Hits {
		out.Entries = append(out.Entries, hit.Source)
	}
	return out, nil
}
