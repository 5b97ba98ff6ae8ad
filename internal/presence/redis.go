package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror keeps presence flags in Redis under <prefix>:presence:<user>.
// Keys carry a TTL so a crashed instance cannot leave users online forever.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisMirror) key(userID string) string {
	return m.prefix + ":presence:" + userID
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID string) error {
	return m.client.Set(ctx, m.key(userID), "1", m.ttl).Err()
}

func (m *RedisMirror) SetOffline(ctx context.Context, userID string) error {
	return m.client.Del(ctx, m.key(userID)).Err()
}

func (m *RedisMirror) Online(ctx context.Context, userIDs []string) (map[string]bool, error) {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = m.key(id)
	}
	vals, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(userIDs))
	for i, v := range vals {
		out[userIDs[i]] = v != nil
	}
	return out, nil
}
