package gateway

import (
	"encoding/json"
	"time"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
)

// Envelope is the wire format for realtime events in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server-originated events.
const (
	EventNewMessage        = "newMessage"
	EventUserTyping        = "userTyping"
	EventMessageReadUpdate = "messageReadUpdate"
	EventOnlineStatus      = "onlineStatusResponse"
	EventUserOffline       = "userOffline"
)

// Client-originated events.
const (
	EventTyping          = "typing"
	EventMessageRead     = "messageRead"
	EventGetOnlineStatus = "getOnlineStatus"
)

type NewMessagePayload struct {
	Message        *models.Message `json:"message"`
	ConversationID string          `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	// ReceiverID is set by the client, UserID by the server when forwarding.
	ReceiverID string `json:"receiverId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	IsTyping   bool   `json:"isTyping"`
}

type MessageReadPayload struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId,omitempty"`
	ReadAt         time.Time `json:"readAt,omitempty"`
}

type OnlineStatusQuery struct {
	UserIDs []string `json:"userIds"`
}

type UserOfflinePayload struct {
	UserID string `json:"userId"`
}
