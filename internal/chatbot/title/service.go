package title

import (
	"context"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/metrics"
)

// Service applies the trigger rule and stores the synthesized title.
type Service struct {
	store       ConversationStore
	synthesizer *Synthesizer
	logger      logger.Logger
}

func NewService(store ConversationStore, synthesizer *Synthesizer, log logger.Logger) *Service {
	return &Service{store: store, synthesizer: synthesizer, logger: log}
}

// GenerateForMessage is called after messageID was stored. It never
// fails: every error is logged and reported as generated=false.
func (s *Service) GenerateForMessage(ctx context.Context, conversationID, messageID string) (string, bool) {
	fields := map[string]interface{}{"conversationId": conversationID, "messageId": messageID}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		s.logger.Warn("title skipped: conversation lookup failed", withError(fields, err))
		metrics.TitleGenerations.WithLabelValues("error").Inc()
		return "", false
	}

	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		s.logger.Warn("title skipped: message lookup failed", withError(fields, err))
		metrics.TitleGenerations.WithLabelValues("error").Inc()
		return "", false
	}

	exchange, ok := ShouldGenerate(conv, messages, messageID)
	if !ok {
		metrics.TitleGenerations.WithLabelValues("skipped").Inc()
		return "", false
	}

	t, err := s.synthesizer.Synthesize(ctx, exchange.User.Text, exchange.Bot.Text)
	if err != nil {
		s.logger.Warn("title generation failed", withError(fields, err))
		metrics.TitleGenerations.WithLabelValues("error").Inc()
		return "", false
	}

	stored, err := s.store.SetTitleIfEmpty(ctx, conversationID, t)
	if err != nil {
		s.logger.Warn("title store failed", withError(fields, err))
		metrics.TitleGenerations.WithLabelValues("error").Inc()
		return "", false
	}
	if !stored {
		metrics.TitleGenerations.WithLabelValues("skipped").Inc()
		return "", false
	}

	metrics.TitleGenerations.WithLabelValues("generated").Inc()
	s.logger.Info("conversation titled", fields)
	return t, true
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err
	return out
}
