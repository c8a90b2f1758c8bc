package querysqlaudit

import "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/audit"

type Input struct {
	ConversationID string `json:"conversationId"`
	Size           int    `json:"size,omitempty"`
}

type Output struct {
	Entries   []audit.Entry `json:"entries"`
	TotalHits int64         `json:"totalHits"`
	Took      int64         `json:"took"` // milliseconds
}
