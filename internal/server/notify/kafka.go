package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON to a topic, keyed by user id.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
	logger logging.Logger
}

// NewKafkaWriter builds a synchronous writer for brokers.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

func NewKafkaNotifier(writer MessageWriter, topic string, logger logging.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic, logger: logger.With("module", "notify")}
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	km := kafka.Message{
		Topic: n.topic,
		Key:   []byte(msg.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	}

	if err := n.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("publish notification to %s: %w", n.topic, err)
	}

	n.logger.Debug(ctx, "notification published", "topic", n.topic, "kind", string(msg.Kind), "user_id", msg.UserID)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
