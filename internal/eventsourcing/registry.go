package eventsourcing

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Registry 事件类型注册表，持久化层据此把 JSON 负载还原为具体事件类型
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() DomainEvent
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() DomainEvent)}
}

// Register 注册事件类型。重复注册同一类型属于编程错误，直接 panic
func (r *Registry) Register(events ...DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		eventType := e.EventType()
		if _, exists := r.factories[eventType]; exists {
			panic(fmt.Sprintf("event type already registered: %s", eventType))
		}
		factory := newFactory(e)
		r.factories[eventType] = factory
	}
}

// Decode 按事件类型解析 JSON 负载
func (r *Registry) Decode(eventType string, payload []byte) (DomainEvent, error) {
	r.mu.RLock()
	factory, ok := r.factories[eventType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", eventType, err)
	}
	return event, nil
}

func newFactory(prototype DomainEvent) func() DomainEvent {
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return func() DomainEvent {
		return reflect.New(t).Interface().(DomainEvent)
	}
}
