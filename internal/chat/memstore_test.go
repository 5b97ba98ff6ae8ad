package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/apperr"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
)

// memStore is an in-memory Store with the same atomicity contract as the
// mongo implementation: every method takes the lock once, so invariants hold
// under the concurrent calls the tests throw at it.
type memStore struct {
	mu       sync.Mutex
	convs    map[string]*models.Conversation
	msgs     map[string]*models.Message
	msgOrder map[string][]string // conversation id -> message ids, append order
	pairKeys map[string]string   // private pair key -> conversation id
}

func newMemStore() *memStore {
	return &memStore{
		convs:    make(map[string]*models.Conversation),
		msgs:     make(map[string]*models.Message),
		msgOrder: make(map[string][]string),
		pairKeys: make(map[string]string),
	}
}

func cloneConv(c *models.Conversation) *models.Conversation {
	out := *c
	out.Participants = append([]models.Participant(nil), c.Participants...)
	out.MessageIDs = append([]string(nil), c.MessageIDs...)
	out.UnreadCounts = append([]models.UnreadCount(nil), c.UnreadCounts...)
	return &out
}

func cloneMsg(m *models.Message) *models.Message {
	out := *m
	out.ReadBy = append([]models.ReadReceipt(nil), m.ReadBy...)
	return &out
}

func (s *memStore) FindOrCreatePrivate(_ context.Context, userA, userB string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.PairKeyFor(userA, userB)
	if id, ok := s.pairKeys[key]; ok {
		return cloneConv(s.convs[id]), nil
	}
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:      uuid.NewString(),
		Kind:    models.KindPrivate,
		PairKey: key,
		Participants: []models.Participant{
			{UserID: userA, Role: models.RoleMember, JoinedAt: now, IsActive: true},
			{UserID: userB, Role: models.RoleMember, JoinedAt: now, IsActive: true},
		},
		MessageIDs:   []string{},
		UnreadCounts: []models.UnreadCount{{UserID: userA}, {UserID: userB}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.convs[conv.ID] = conv
	s.pairKeys[key] = conv.ID
	return cloneConv(conv), nil
}

func (s *memStore) ConversationByID(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return cloneConv(conv), nil
}

func (s *memStore) ConversationsForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Conversation
	for _, c := range s.convs {
		if c.HasActiveParticipant(userID) {
			out = append(out, cloneConv(c))
		}
	}
	// updated_at desc, the order the store index yields
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.After(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *memStore) CreateGroup(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = cloneConv(conv)
	return nil
}

func (s *memStore) AddParticipant(_ context.Context, convID string, p models.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok || conv.Kind != models.KindGroup {
		return false, nil
	}
	for _, existing := range conv.Participants {
		if existing.UserID == p.UserID {
			return false, nil
		}
	}
	conv.Participants = append(conv.Participants, p)
	conv.UnreadCounts = append(conv.UnreadCounts, models.UnreadCount{UserID: p.UserID})
	conv.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memStore) AppendMessage(_ context.Context, msg *models.Message, recipientIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[msg.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, apperr.ErrNotFound)
	}
	s.msgs[msg.ID] = cloneMsg(msg)
	s.msgOrder[msg.ConversationID] = append(s.msgOrder[msg.ConversationID], msg.ID)
	conv.MessageIDs = append(conv.MessageIDs, msg.ID)
	conv.LastMessageID = msg.ID
	conv.UpdatedAt = msg.CreatedAt
	for _, r := range recipientIDs {
		for i := range conv.UnreadCounts {
			if conv.UnreadCounts[i].UserID == r {
				conv.UnreadCounts[i].Count++
			}
		}
	}
	return nil
}

func (s *memStore) Messages(_ context.Context, convID string, limit int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.msgOrder[convID]
	if int64(len(ids)) > limit {
		ids = ids[int64(len(ids))-limit:]
	}
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneMsg(s.msgs[id]))
	}
	return out, nil
}

func (s *memStore) MessagesByID(_ context.Context, ids []string) (map[string]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.Message, len(ids))
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out[id] = cloneMsg(m)
		}
	}
	return out, nil
}

func (s *memStore) MarkMessagesRead(_ context.Context, convID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.msgOrder[convID] {
		m := s.msgs[id]
		if !m.ReadByUser(userID) {
			m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: at})
		}
	}
	return nil
}

func (s *memStore) ResetUnread(_ context.Context, convID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return nil
	}
	for i := range conv.UnreadCounts {
		if conv.UnreadCounts[i].UserID == userID {
			conv.UnreadCounts[i].Count = 0
		}
	}
	return nil
}

// message returns the stored (not cloned) message for assertions.
func (s *memStore) message(id string) *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs[id]
}

func (s *memStore) conversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
