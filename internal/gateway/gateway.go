package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/presence"
)

// Gateway bridges service-layer events and client-originated realtime events
// to connected clients through the presence registry. It holds no state of
// its own; an unreachable recipient simply misses the push and catches up
// through the persisted store.
type Gateway struct {
	registry *presence.Registry
	log      *zap.SugaredLogger
	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, senderID string, payload json.RawMessage) error

func New(registry *presence.Registry, log *zap.SugaredLogger) *Gateway {
	g := &Gateway{registry: registry, log: log}
	g.handlers = map[string]handlerFunc{
		EventTyping:          g.handleTyping,
		EventMessageRead:     g.handleMessageRead,
		EventGetOnlineStatus: g.handleOnlineStatus,
	}
	return g
}

// Connected registers the client's connection for pushes.
func (g *Gateway) Connected(ctx context.Context, userID string, c presence.Conn) {
	g.registry.Register(ctx, userID, c)
	g.log.Infow("client connected", "user_id", userID)
}

// Disconnected drops the registration (unless a newer connection superseded
// it) and broadcasts a best-effort offline notice.
func (g *Gateway) Disconnected(ctx context.Context, userID string, c presence.Conn) {
	if !g.registry.Unregister(ctx, userID, c) {
		return
	}
	g.log.Infow("client disconnected", "user_id", userID)
	if b, err := encode(EventUserOffline, UserOfflinePayload{UserID: userID}); err == nil {
		g.registry.Broadcast(b)
	}
}

// Dispatch routes one client-originated event to its handler. Unknown events
// are ignored.
func (g *Gateway) Dispatch(ctx context.Context, senderID string, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed event: %w", err)
	}
	h, ok := g.handlers[env.Event]
	if !ok {
		g.log.Debugw("ignoring unknown event", "event", env.Event, "user_id", senderID)
		return nil
	}
	return h(ctx, senderID, env.Payload)
}

// MessageCreated pushes a freshly persisted message to the recipient if they
// are connected. Implements the conversation service's notifier.
func (g *Gateway) MessageCreated(recipientID string, msg *models.Message) {
	g.pushTo(recipientID, EventNewMessage, NewMessagePayload{
		Message:        msg,
		ConversationID: msg.ConversationID,
	})
}

func (g *Gateway) handleTyping(_ context.Context, senderID string, payload json.RawMessage) error {
	var p TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("typing payload: %w", err)
	}
	// ephemeral signal, silently dropped when the receiver is offline
	g.pushTo(p.ReceiverID, EventUserTyping, TypingPayload{
		ConversationID: p.ConversationID,
		UserID:         senderID,
		IsTyping:       p.IsTyping,
	})
	return nil
}

func (g *Gateway) handleMessageRead(_ context.Context, senderID string, payload json.RawMessage) error {
	var p MessageReadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("messageRead payload: %w", err)
	}
	g.pushTo(p.SenderID, EventMessageReadUpdate, MessageReadPayload{
		MessageID:      p.MessageID,
		ConversationID: p.ConversationID,
		ReadAt:         time.Now().UTC(),
	})
	return nil
}

func (g *Gateway) handleOnlineStatus(ctx context.Context, senderID string, payload json.RawMessage) error {
	var q OnlineStatusQuery
	if err := json.Unmarshal(payload, &q); err != nil {
		return fmt.Errorf("getOnlineStatus payload: %w", err)
	}
	status := g.registry.BulkStatus(ctx, q.UserIDs)
	g.pushTo(senderID, EventOnlineStatus, status)
	return nil
}

// pushTo delivers an event to a single user's connection. Reports false when
// the user is offline or the client is backed up; callers never treat that as
// an error.
func (g *Gateway) pushTo(userID, event string, payload any) bool {
	if userID == "" {
		return false
	}
	conn, ok := g.registry.Lookup(userID)
	if !ok {
		return false
	}
	b, err := encode(event, payload)
	if err != nil {
		g.log.Errorw("encode event", "event", event, "error", err)
		return false
	}
	if !conn.Send(b) {
		g.log.Debugw("dropped push, client backed up", "event", event, "user_id", userID)
		return false
	}
	return true
}

func encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
