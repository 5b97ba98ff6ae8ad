package repository

import (
	"context"
	"time"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
)

// Store is the persistence boundary for conversations and messages. Every
// method that establishes an invariant (pair uniqueness, unread counters,
// read-by growth) must be a single atomic operation against the database so
// the data stays correct with multiple server instances writing.
type Store interface {
	// FindOrCreatePrivate returns the one private conversation for the
	// unordered pair, creating it with both participants active and zero
	// unread counters when absent. Concurrent calls for the same pair
	// yield the same conversation.
	FindOrCreatePrivate(ctx context.Context, userA, userB string) (*models.Conversation, error)

	ConversationByID(ctx context.Context, id string) (*models.Conversation, error)

	// ConversationsForUser lists conversations where the user is an active
	// participant, most recently updated first.
	ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error)

	CreateGroup(ctx context.Context, conv *models.Conversation) error

	// AddParticipant appends a participant (and a zero unread counter) to a
	// group conversation, only if the user is not already a participant.
	// Returns false when the guarded update matched nothing.
	AddParticipant(ctx context.Context, convID string, p models.Participant) (bool, error)

	// AppendMessage persists the message, appends its id to the owning
	// conversation, updates the last-message pointer, bumps updated_at and
	// atomically increments the unread counter of each recipient.
	AppendMessage(ctx context.Context, msg *models.Message, recipientIDs []string) error

	// Messages returns up to limit most recent messages of a conversation,
	// oldest first.
	Messages(ctx context.Context, convID string, limit int64) ([]*models.Message, error)

	// MessagesByID resolves message ids to documents, keyed by id.
	MessagesByID(ctx context.Context, ids []string) (map[string]*models.Message, error)

	// MarkMessagesRead appends a read receipt for the user to every message
	// of the conversation that does not already carry one.
	MarkMessagesRead(ctx context.Context, convID, userID string, at time.Time) error

	// ResetUnread sets the user's unread counter on the conversation to
	// zero. Idempotent.
	ResetUnread(ctx context.Context, convID, userID string) error
}
