package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
)

// KafkaPublisher emits message.sent events for downstream consumers
// (notifications, analytics). Publishing is best effort: failures are logged
// and never surfaced to the sender.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewKafkaPublisher returns nil when no brokers are configured; callers treat
// a nil publisher as disabled.
func NewKafkaPublisher(brokers []string, topic string, log *zap.SugaredLogger) *KafkaPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) MessageSent(ctx context.Context, msg *models.Message) {
	value, err := json.Marshal(map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
		"created_at":      msg.CreatedAt,
	})
	if err != nil {
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.log.Warnw("publish message.sent", "message_id", msg.ID, "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
