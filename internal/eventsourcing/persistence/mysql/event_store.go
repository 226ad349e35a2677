// Package mysql 提供基于 GORM 的追加式事件存储
package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"gorm.io/gorm"
)

// EventPO 事件持久化对象。(aggregate_id, version) 唯一索引保证乐观并发
type EventPO struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	AggregateID string `gorm:"size:64;uniqueIndex:uk_aggregate_version,priority:1;index:idx_aggregate"`
	Version     int    `gorm:"uniqueIndex:uk_aggregate_version,priority:2"`
	EventType   string `gorm:"size:64"`
	Payload     string `gorm:"type:json"`
	OccurredAt  int64
	CreatedAt   time.Time
}

// TableName 表名
func (EventPO) TableName() string { return "domain_events" }

// EventStore GORM 事件存储实现
type EventStore struct {
	db       *gorm.DB
	registry *eventsourcing.Registry
}

// NewEventStore 创建事件存储。registry 用于加载时把 JSON 负载还原为具体事件
func NewEventStore(db *gorm.DB, registry *eventsourcing.Registry) *EventStore {
	return &EventStore{db: db, registry: registry}
}

// Migrate 创建事件表
func (s *EventStore) Migrate() error {
	return s.db.AutoMigrate(&EventPO{})
}

// Append 以乐观并发追加事件，版本冲突时返回 eventsourcing.ErrVersionConflict
func (s *EventStore) Append(ctx context.Context, aggregateID string, events []eventsourcing.DomainEvent, expectedVersion int) error {
	if len(events) == 0 {
		return nil
	}

	pos := make([]*EventPO, 0, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		pos = append(pos, &EventPO{
			AggregateID: aggregateID,
			Version:     expectedVersion + i + 1,
			EventType:   event.EventType(),
			Payload:     string(payload),
			OccurredAt:  event.OccurredAt().UnixNano(),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, po := range pos {
			if err := tx.Create(po).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: aggregate %s expected version %d",
				eventsourcing.ErrVersionConflict, aggregateID, expectedVersion)
		}
		return fmt.Errorf("failed to append events for %s: %w", aggregateID, err)
	}
	return nil
}

// Load 按版本顺序加载聚合事件流
func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]eventsourcing.DomainEvent, error) {
	var pos []EventPO
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", aggregateID, err)
	}

	events := make([]eventsourcing.DomainEvent, 0, len(pos))
	for _, po := range pos {
		event, err := s.registry.Decode(po.EventType, []byte(po.Payload))
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
