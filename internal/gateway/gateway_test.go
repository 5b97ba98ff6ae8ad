package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/presence"
)

type recordingConn struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *recordingConn) Send(payload []byte) bool {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env)
	return true
}

func (r *recordingConn) received() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

func newTestGateway() (*Gateway, *presence.Registry) {
	registry := presence.NewRegistry(nil)
	return New(registry, zap.NewNop().Sugar()), registry
}

func connect(ctx context.Context, g *Gateway, userID string) *recordingConn {
	c := &recordingConn{}
	g.Connected(ctx, userID, c)
	return c
}

func TestMessageCreatedPushesToRecipient(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	bob := connect(ctx, g, "bob")

	msg := &models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Body: "hi"}
	g.MessageCreated("bob", msg)

	events := bob.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventNewMessage, events[0].Event)

	var p NewMessagePayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &p))
	assert.Equal(t, "c1", p.ConversationID)
	require.NotNil(t, p.Message)
	assert.Equal(t, "hi", p.Message.Body)
}

func TestMessageCreatedOfflineRecipient(t *testing.T) {
	g, _ := newTestGateway()
	// no one connected; must be a silent no-op
	g.MessageCreated("bob", &models.Message{ID: "m1", ConversationID: "c1"})
}

func TestTypingForwardedToReceiverOnly(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	bob := connect(ctx, g, "bob")
	carol := connect(ctx, g, "carol")

	raw, _ := json.Marshal(map[string]any{
		"event":   EventTyping,
		"payload": TypingPayload{ConversationID: "c1", ReceiverID: "bob", IsTyping: true},
	})
	require.NoError(t, g.Dispatch(ctx, "alice", raw))

	events := bob.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Event)

	var p TypingPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &p))
	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, "c1", p.ConversationID)
	assert.True(t, p.IsTyping)
	assert.Empty(t, p.ReceiverID)

	assert.Empty(t, carol.received(), "typing goes to the receiver only")
}

func TestTypingOfflineReceiverIsSilent(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()

	raw, _ := json.Marshal(map[string]any{
		"event":   EventTyping,
		"payload": TypingPayload{ConversationID: "c1", ReceiverID: "bob", IsTyping: true},
	})
	assert.NoError(t, g.Dispatch(ctx, "alice", raw))
}

func TestMessageReadForwardedToSender(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	alice := connect(ctx, g, "alice")

	raw, _ := json.Marshal(map[string]any{
		"event":   EventMessageRead,
		"payload": MessageReadPayload{MessageID: "m1", ConversationID: "c1", SenderID: "alice"},
	})
	require.NoError(t, g.Dispatch(ctx, "bob", raw))

	events := alice.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageReadUpdate, events[0].Event)

	var p MessageReadPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &p))
	assert.Equal(t, "m1", p.MessageID)
	assert.Equal(t, "c1", p.ConversationID)
	assert.WithinDuration(t, time.Now().UTC(), p.ReadAt, 5*time.Second)
}

func TestOnlineStatusAnsweredToQuerier(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	alice := connect(ctx, g, "alice")
	connect(ctx, g, "bob")

	raw, _ := json.Marshal(map[string]any{
		"event":   EventGetOnlineStatus,
		"payload": OnlineStatusQuery{UserIDs: []string{"bob", "carol"}},
	})
	require.NoError(t, g.Dispatch(ctx, "alice", raw))

	events := alice.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventOnlineStatus, events[0].Event)

	var status map[string]bool
	require.NoError(t, json.Unmarshal(events[0].Payload, &status))
	assert.Equal(t, map[string]bool{"bob": true, "carol": false}, status)
}

func TestDisconnectBroadcastsUserOffline(t *testing.T) {
	ctx := context.Background()
	g, registry := newTestGateway()
	aliceConn := connect(ctx, g, "alice")
	bob := connect(ctx, g, "bob")

	g.Disconnected(ctx, "alice", aliceConn)

	_, ok := registry.Lookup("alice")
	assert.False(t, ok)

	events := bob.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserOffline, events[0].Event)

	var p UserOfflinePayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &p))
	assert.Equal(t, "alice", p.UserID)
}

func TestStaleDisconnectDoesNotBroadcast(t *testing.T) {
	ctx := context.Background()
	g, registry := newTestGateway()
	old := connect(ctx, g, "alice")
	replacement := connect(ctx, g, "alice") // reconnect supersedes
	bob := connect(ctx, g, "bob")

	g.Disconnected(ctx, "alice", old)

	got, ok := registry.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, presence.Conn(replacement), got)
	assert.Empty(t, bob.received())
}

func TestDispatchUnknownEventIgnored(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	assert.NoError(t, g.Dispatch(ctx, "alice", []byte(`{"event":"noSuchEvent","payload":{}}`)))
}

func TestDispatchMalformedEvent(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway()
	assert.Error(t, g.Dispatch(ctx, "alice", []byte(`not json`)))
}
