package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/apperr"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/repository"
)

const (
	// MaxBodyLen bounds the message body in characters.
	MaxBodyLen = 1000
	// MaxNameLen bounds a group conversation name.
	MaxNameLen = 50
	// HistoryLimit is how many recent messages a listing returns.
	HistoryLimit = 50
)

// Notifier receives realtime push requests after a message commits. Pushes
// are fire-and-forget; an unreachable recipient catches up on the next fetch.
type Notifier interface {
	MessageCreated(recipientID string, msg *models.Message)
}

// Publisher emits message events to the event pipeline, best effort.
type Publisher interface {
	MessageSent(ctx context.Context, msg *models.Message)
}

// Preview is a conversation enriched for list rendering: the other side of a
// private chat and the last message, materialized from the normalized store.
type Preview struct {
	Conversation *models.Conversation `json:"conversation"`
	OtherUserID  string               `json:"otherUserId,omitempty"`
	LastMessage  *models.Message      `json:"lastMessage,omitempty"`
	UnreadCount  int                  `json:"unreadCount"`
}

type Service struct {
	store    repository.Store
	notifier Notifier
	events   Publisher
	log      *zap.SugaredLogger
}

func NewService(store repository.Store, notifier Notifier, events Publisher, log *zap.SugaredLogger) *Service {
	return &Service{store: store, notifier: notifier, events: events, log: log}
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("message body is empty: %w", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(body) > MaxBodyLen {
		return "", fmt.Errorf("message body exceeds %d characters: %w", MaxBodyLen, apperr.ErrValidation)
	}
	return body, nil
}

func (s *Service) FindOrCreatePrivate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("user id missing: %w", apperr.ErrValidation)
	}
	if userA == userB {
		return nil, fmt.Errorf("cannot start a conversation with yourself: %w", apperr.ErrValidation)
	}
	return s.store.FindOrCreatePrivate(ctx, userA, userB)
}

// SendMessage appends a message to the private conversation with the
// recipient, creating the conversation on first contact.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID, body string) (*models.Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	conv, err := s.FindOrCreatePrivate(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, conv, senderID, body, []string{recipientID})
}

// SendToConversation appends a message to an existing conversation the sender
// participates in; every other active participant gets an unread increment
// and a push.
func (s *Service) SendToConversation(ctx context.Context, senderID, convID, body string) (*models.Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	conv, err := s.store.ConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasActiveParticipant(senderID) {
		return nil, fmt.Errorf("user %s is not a participant of conversation %s: %w", senderID, convID, apperr.ErrForbidden)
	}
	return s.append(ctx, conv, senderID, body, conv.ActiveRecipients(senderID))
}

func (s *Service) append(ctx context.Context, conv *models.Conversation, senderID, body string, recipients []string) (*models.Message, error) {
	now := time.Now().UTC()
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           body,
		ReadBy:         []models.ReadReceipt{{UserID: senderID, ReadAt: now}},
		CreatedAt:      now,
	}
	if err := s.store.AppendMessage(ctx, msg, recipients); err != nil {
		return nil, err
	}
	s.log.Debugw("message appended", "conversation_id", conv.ID, "message_id", msg.ID)
	if s.notifier != nil {
		for _, r := range recipients {
			s.notifier.MessageCreated(r, msg)
		}
	}
	if s.events != nil {
		s.events.MessageSent(ctx, msg)
	}
	return msg, nil
}

// ListConversations returns the user's conversations, most recently active
// first, each with its preview materialized.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*Preview, error) {
	convs, err := s.store.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var lastIDs []string
	for _, c := range convs {
		if c.LastMessageID != "" {
			lastIDs = append(lastIDs, c.LastMessageID)
		}
	}
	lastMsgs, err := s.store.MessagesByID(ctx, lastIDs)
	if err != nil {
		return nil, err
	}
	out := make([]*Preview, 0, len(convs))
	for _, c := range convs {
		p := &Preview{Conversation: c, UnreadCount: c.UnreadFor(userID)}
		if other, ok := c.OtherParticipant(userID); ok {
			p.OtherUserID = other
		}
		if c.LastMessageID != "" {
			p.LastMessage = lastMsgs[c.LastMessageID]
		}
		out = append(out, p)
	}
	return out, nil
}

// ListMessages returns the newest messages of a conversation in chronological
// order and, as a side effect, marks everything as read for the caller. The
// counter reset is an idempotent set-to-zero, so concurrent fetches by the
// same user cannot corrupt it.
func (s *Service) ListMessages(ctx context.Context, convID, userID string) ([]*models.Message, error) {
	conv, err := s.store.ConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasActiveParticipant(userID) {
		return nil, fmt.Errorf("user %s is not a participant of conversation %s: %w", userID, convID, apperr.ErrForbidden)
	}
	msgs, err := s.store.Messages(ctx, convID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkMessagesRead(ctx, convID, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.ResetUnread(ctx, convID, userID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkAsRead resets the user's unread counter on the conversation.
func (s *Service) MarkAsRead(ctx context.Context, convID, userID string) error {
	conv, err := s.store.ConversationByID(ctx, convID)
	if err != nil {
		return err
	}
	if !conv.HasActiveParticipant(userID) {
		return fmt.Errorf("user %s is not a participant of conversation %s: %w", userID, convID, apperr.ErrForbidden)
	}
	return s.store.ResetUnread(ctx, convID, userID)
}

// StartGroup creates a group conversation with the creator as admin.
func (s *Service) StartGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLen {
		return nil, fmt.Errorf("conversation name exceeds %d characters: %w", MaxNameLen, apperr.ErrValidation)
	}
	now := time.Now().UTC()
	seen := map[string]bool{creatorID: true}
	participants := []models.Participant{{UserID: creatorID, Role: models.RoleAdmin, JoinedAt: now, IsActive: true}}
	counts := []models.UnreadCount{{UserID: creatorID}}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, models.Participant{UserID: id, Role: models.RoleMember, JoinedAt: now, IsActive: true})
		counts = append(counts, models.UnreadCount{UserID: id})
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("a group needs at least two participants: %w", apperr.ErrValidation)
	}
	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Kind:         models.KindGroup,
		Name:         name,
		Participants: participants,
		MessageIDs:   []string{},
		UnreadCounts: counts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateGroup(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// AddParticipant adds a user to a group conversation. Adding someone who is
// already a participant is a no-op.
func (s *Service) AddParticipant(ctx context.Context, convID, actorID, userID string) (*models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id missing: %w", apperr.ErrValidation)
	}
	conv, err := s.store.ConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasActiveParticipant(actorID) {
		return nil, fmt.Errorf("user %s is not a participant of conversation %s: %w", actorID, convID, apperr.ErrForbidden)
	}
	if conv.Kind != models.KindGroup {
		return nil, fmt.Errorf("participants can only be added to group conversations: %w", apperr.ErrValidation)
	}
	p := models.Participant{UserID: userID, Role: models.RoleMember, JoinedAt: time.Now().UTC(), IsActive: true}
	added, err := s.store.AddParticipant(ctx, convID, p)
	if err != nil {
		return nil, err
	}
	if !added {
		// already a member
		return conv, nil
	}
	return s.store.ConversationByID(ctx, convID)
}
