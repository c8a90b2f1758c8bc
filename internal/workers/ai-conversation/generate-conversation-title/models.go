// internal/workers/ai-conversation/generate-conversation-title/models.go
package generateconversationtitle

type Input struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type Output struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title,omitempty"`
	Generated      bool   `json:"generated"`
}
