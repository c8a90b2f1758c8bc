package models

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Conversation is the slice of the stored conversation the chatbot reads.
type Conversation struct {
	ID    string `json:"conversationId"`
	Title string `json:"title"`
}

// Message is one stored turn.
type Message struct {
	ID             string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}
