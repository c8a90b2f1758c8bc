package title

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

// ConversationStore is the slice of conversation storage the title service
// needs.
type ConversationStore interface {
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	// SetTitleIfEmpty stores title only when the conversation has none and
	// reports whether it did.
	SetTitleIfEmpty(ctx context.Context, conversationID, title string) (bool, error)
}

// ErrTitleColumnMissing means the conversation table predates the title
// column. See migrations/0001_conversation_title.sql.
var ErrTitleColumnMissing = errors.New("conversation table has no title column")

// undefinedColumn is the Postgres SQLSTATE for a missing column.
const undefinedColumn = "42703"

func titleColumnErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedColumn {
		return fmt.Errorf("%s: %w: %v", op, ErrTitleColumnMissing, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type PostgresConversationStore struct {
	db                *sql.DB
	conversationTable string
	messageTable      string
}

// NewPostgresConversationStore takes table names that may be schema
// qualified ("solution_customizing.conversations").
func NewPostgresConversationStore(db *sql.DB, conversationTable, messageTable string) *PostgresConversationStore {
	return &PostgresConversationStore{
		db:                db,
		conversationTable: quoteQualified(conversationTable),
		messageTable:      quoteQualified(messageTable),
	}
}

func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func (s *PostgresConversationStore) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	query := fmt.Sprintf(`SELECT conversation_id, COALESCE(title, '') FROM %s WHERE conversation_id = $1`, s.conversationTable)

	var conv models.Conversation
	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(&conv.ID, &conv.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperrors.NewConversationNotFoundError(conversationID)
	}
	if err != nil {
		return models.Conversation{}, titleColumnErr("get conversation", err)
	}
	return conv, nil
}

func (s *PostgresConversationStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT message_id, conversation_id, sender, message, created_at
		FROM %s WHERE conversation_id = $1 ORDER BY created_at, message_id`, s.messageTable)

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = models.Sender(sender)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresConversationStore) SetTitleIfEmpty(ctx context.Context, conversationID, title string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET title = $1
		WHERE conversation_id = $2 AND (title IS NULL OR title = '')`, s.conversationTable)

	res, err := s.db.ExecContext(ctx, query, title, conversationID)
	if err != nil {
		return false, titleColumnErr("set title", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set title: %w", err)
	}
	return n > 0, nil
}
