// internal/workers/ai-conversation/chatbot-respond/models.go
package chatbotrespond

import "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"

type Input struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type Output struct {
	Response        string                      `json:"response"`
	Intent          models.Intent               `json:"intent"`
	SQLQuery        *string                     `json:"sqlQuery,omitempty"`
	Data            *models.QueryResultEnvelope `json:"data,omitempty"`
	SQLError        string                      `json:"sqlError,omitempty"`
	DatabaseError   string                      `json:"databaseError,omitempty"`
	SchemaAvailable bool                        `json:"schemaAvailable"`
	RequestID       string                      `json:"requestId"`
}
