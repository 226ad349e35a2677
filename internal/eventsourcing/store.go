package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrVersionConflict 乐观并发冲突：期望版本与存储中的事件数不一致
var ErrVersionConflict = errors.New("aggregate version conflict")

// EventStore 按聚合标识追加/加载事件流
type EventStore interface {
	// Append 以乐观并发追加事件。expectedVersion 为追加前聚合已有的事件数
	Append(ctx context.Context, aggregateID string, events []DomainEvent, expectedVersion int) error
	// Load 按追加顺序返回聚合的全部事件
	Load(ctx context.Context, aggregateID string) ([]DomainEvent, error)
}

// MemoryEventStore 内存事件存储，用于核心运行与测试
type MemoryEventStore struct {
	mu      sync.RWMutex
	streams map[string][]DomainEvent
}

// NewMemoryEventStore 创建内存事件存储
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{streams: make(map[string][]DomainEvent)}
}

// Append 追加事件
func (s *MemoryEventStore) Append(ctx context.Context, aggregateID string, events []DomainEvent, expectedVersion int) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	if len(stream) != expectedVersion {
		return fmt.Errorf("%w: aggregate %s expected version %d, actual %d",
			ErrVersionConflict, aggregateID, expectedVersion, len(stream))
	}

	s.streams[aggregateID] = append(stream, events...)
	return nil
}

// Load 加载事件流
func (s *MemoryEventStore) Load(ctx context.Context, aggregateID string) ([]DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	out := make([]DomainEvent, len(stream))
	copy(out, stream)
	return out, nil
}
