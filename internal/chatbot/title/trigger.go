package title

import "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"

// Exchange is the first user/bot pair a title is drawn from.
type Exchange struct {
	User models.Message
	Bot  models.Message
}

// ShouldGenerate reports whether storing messageID warrants a title: the
// conversation has none, the message is the conversation's first bot
// message, and a user message precedes it. messages must be in creation
// order.
func ShouldGenerate(conv models.Conversation, messages []models.Message, messageID string) (Exchange, bool) {
	if conv.Title != "" {
		return Exchange{}, false
	}

	var firstUser *models.Message
	for i := range messages {
		m := messages[i]
		switch m.Sender {
		case models.SenderUser:
			if firstUser == nil {
				firstUser = &messages[i]
			}
		case models.SenderBot:
			// only the first bot message can trigger
			if m.ID != messageID || firstUser == nil {
				return Exchange{}, false
			}
			return Exchange{User: *firstUser, Bot: m}, true
		}
	}
	return Exchange{}, false
}
