package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
)

// Settlement event types
const (
	EventContractRequested = "contract.requested"
	EventContractApproved  = "contract.approved"
	EventContractDeclined  = "contract.declined"
	EventContractCancelled = "contract.cancelled"
	EventContractCompleted = "contract.completed"
	EventPaymentCompleted  = "payment.completed"
)

// Notifier is the fire-and-forget side channel to the notification
// collaborator. At-most-once: a failed send is logged and dropped, never
// retried into financial state.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{})
}

type event struct {
	UserID    uuid.UUID              `json:"user_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// KafkaNotifier publishes settlement events to a Kafka topic. Delivery
// reports are drained by a background goroutine that only logs.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewKafkaNotifier(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
	})
	if err != nil {
		return nil, err
	}

	n := &KafkaNotifier{
		producer: p,
		topic:    cfg.SettlementTopic,
		logger:   logger,
	}

	go n.drainDeliveryReports()

	return n, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) {
	value, err := json.Marshal(event{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("marshal notification event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(userID.String()),
		Value:          value,
	}, nil)
	if err != nil {
		n.logger.Warn("notification enqueue failed",
			zap.String("event_type", eventType),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func (n *KafkaNotifier) drainDeliveryReports() {
	for e := range n.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			n.logger.Warn("notification delivery failed",
				zap.Error(m.TopicPartition.Error),
			)
		}
	}
}

// Close flushes outstanding messages briefly and shuts the producer down.
func (n *KafkaNotifier) Close() {
	n.producer.Flush(int((5 * time.Second).Milliseconds()))
	n.producer.Close()
}
