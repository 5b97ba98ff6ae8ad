package models

import "time"

const (
	KindPrivate = "private"
	KindGroup   = "group"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Participant struct {
	UserID   string     `bson:"user" json:"userId"`
	Role     string     `bson:"role" json:"role"`
	JoinedAt time.Time  `bson:"joined_at" json:"joinedAt"`
	LeftAt   *time.Time `bson:"left_at,omitempty" json:"leftAt,omitempty"`
	IsActive bool       `bson:"is_active" json:"isActive"`
}

type UnreadCount struct {
	UserID string `bson:"user" json:"userId"`
	Count  int    `bson:"count" json:"count"`
}

type Conversation struct {
	ID   string `bson:"_id" json:"id"`
	Kind string `bson:"kind" json:"kind"`
	// Name is only set for group conversations.
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	// PairKey identifies the unordered participant pair of a private
	// conversation; it backs the uniqueness guard in the store.
	PairKey       string        `bson:"pair_key,omitempty" json:"-"`
	Participants  []Participant `bson:"participants" json:"participants"`
	MessageIDs    []string      `bson:"messages" json:"messageIds"`
	LastMessageID string        `bson:"last_message,omitempty" json:"lastMessageId,omitempty"`
	UnreadCounts  []UnreadCount `bson:"unread_counts" json:"unreadCounts"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

// PairKeyFor builds the order-independent key for a private conversation
// between two users.
func PairKeyFor(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (c *Conversation) HasActiveParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID && p.IsActive {
			return true
		}
	}
	return false
}

// OtherParticipant returns the second participant of a private conversation.
func (c *Conversation) OtherParticipant(userID string) (string, bool) {
	if c.Kind != KindPrivate {
		return "", false
	}
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p.UserID, true
		}
	}
	return "", false
}

// ActiveRecipients returns every active participant except the sender.
func (c *Conversation) ActiveRecipients(senderID string) []string {
	var out []string
	for _, p := range c.Participants {
		if p.IsActive && p.UserID != senderID {
			out = append(out, p.UserID)
		}
	}
	return out
}

func (c *Conversation) UnreadFor(userID string) int {
	for _, u := range c.UnreadCounts {
		if u.UserID == userID {
			return u.Count
		}
	}
	return 0
}
