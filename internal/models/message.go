package models

import "time"

type ReadReceipt struct {
	UserID string    `bson:"user" json:"userId"`
	ReadAt time.Time `bson:"read_at" json:"readAt"`
}

type Message struct {
	ID             string        `bson:"_id" json:"id"`
	ConversationID string        `bson:"conversation_id" json:"conversationId"`
	SenderID       string        `bson:"sender_id" json:"senderId"`
	Body           string        `bson:"body" json:"body"`
	ReadBy         []ReadReceipt `bson:"read_by" json:"readBy"`
	CreatedAt      time.Time     `bson:"created_at" json:"createdAt"`
}

func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
