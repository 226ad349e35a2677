// Package messaging 把领域事件转发到 Kafka，供下游系统消费
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/pkg/mq"
)

// EventEnvelope Kafka 上的事件信封
type EventEnvelope struct {
	MessageID   string          `json:"message_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// EventRelay 事件中继。作为事件总线订阅者，把每个领域事件发布到其上下文主题
type EventRelay struct {
	producer     *mq.KafkaProducer
	topics       map[string]string
	defaultTopic string
	logger       *slog.Logger
}

// NewEventRelay 创建事件中继。topics 为事件类型到主题的映射，未命中时使用 defaultTopic
func NewEventRelay(producer *mq.KafkaProducer, topics map[string]string, defaultTopic string, logger *slog.Logger) *EventRelay {
	return &EventRelay{
		producer:     producer,
		topics:       topics,
		defaultTopic: defaultTopic,
		logger:       logger.With("component", "event_relay"),
	}
}

// Handle 实现 eventsourcing.EventHandler，把事件发布到 Kafka。
// 发布失败只记录日志，不影响核心处理流程
func (r *EventRelay) Handle(ctx context.Context, event eventsourcing.DomainEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal domain event",
			"event_type", event.EventType(),
			"error", err,
		)
		return
	}

	envelope := EventEnvelope{
		MessageID:   uuid.NewString(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     payload,
	}

	topic := r.topics[event.EventType()]
	if topic == "" {
		topic = r.defaultTopic
	}

	if err := r.producer.SendMessage(ctx, topic, event.AggregateID(), envelope); err != nil {
		r.logger.Error("failed to relay domain event",
			"event_type", event.EventType(),
			"topic", topic,
			"error", err,
		)
	}
}
