// Package eventsourcing 提供事件溯源运行时：领域事件、聚合基类、事件存储与命令/事件总线
package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DomainEvent 领域事件接口。聚合的全部状态变更均以事件表达
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// BaseEvent 基础事件结构，各上下文的事件嵌入该结构
type BaseEvent struct {
	ID        string    `json:"aggregate_id"`
	Timestamp time.Time `json:"occurred_at"`
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(aggregateID string) BaseEvent {
	return BaseEvent{ID: aggregateID, Timestamp: time.Now()}
}

// AggregateID 返回事件所属聚合标识
func (e *BaseEvent) AggregateID() string { return e.ID }

// OccurredAt 返回事件发生时间
func (e *BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Aggregate 事件溯源聚合接口。状态只能由 Apply 修改，命令方法只负责校验并产生事件
type Aggregate interface {
	AggregateID() string
	SetAggregateID(id string)
	Version() int
	SetVersion(v int)
	Apply(event DomainEvent)
	Uncommitted() []DomainEvent
	ClearUncommitted()
}

// AggregateBase 聚合基类，维护标识、已提交版本与未提交事件
type AggregateBase struct {
	id      string
	version int
	pending []DomainEvent
}

// AggregateID 返回聚合标识
func (b *AggregateBase) AggregateID() string { return b.id }

// Version 返回已提交的事件数
func (b *AggregateBase) Version() int { return b.version }

// Uncommitted 返回尚未持久化的事件
func (b *AggregateBase) Uncommitted() []DomainEvent { return b.pending }

// ClearUncommitted 清空未提交事件
func (b *AggregateBase) ClearUncommitted() { b.pending = nil }

// Record 追加一条未提交事件
func (b *AggregateBase) Record(event DomainEvent) {
	b.pending = append(b.pending, event)
}

// SetVersion 设置已提交版本，仅供仓储在加载/提交时调用
func (b *AggregateBase) SetVersion(v int) { b.version = v }

// SetAggregateID 设置聚合标识，仅供仓储与聚合构造函数调用
func (b *AggregateBase) SetAggregateID(id string) { b.id = id }

// ErrAggregateNotFound 聚合不存在（无任何历史事件）
var ErrAggregateNotFound = errors.New("aggregate not found")

// Repository 基于事件存储的聚合仓储
type Repository[T Aggregate] struct {
	store   EventStore
	factory func() T
}

// NewRepository 创建仓储。factory 返回零值聚合，Load 时回放历史事件重建状态
func NewRepository[T Aggregate](store EventStore, factory func() T) *Repository[T] {
	return &Repository[T]{store: store, factory: factory}
}

// Load 回放历史事件重建聚合
func (r *Repository[T]) Load(ctx context.Context, aggregateID string) (T, error) {
	var zero T

	events, err := r.store.Load(ctx, aggregateID)
	if err != nil {
		return zero, err
	}
	if len(events) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrAggregateNotFound, aggregateID)
	}

	agg := r.factory()
	agg.SetAggregateID(aggregateID)
	for _, e := range events {
		agg.Apply(e)
	}
	agg.SetVersion(len(events))
	return agg, nil
}

// Exists 判断聚合是否已有历史事件
func (r *Repository[T]) Exists(ctx context.Context, aggregateID string) (bool, error) {
	events, err := r.store.Load(ctx, aggregateID)
	if err != nil {
		return false, err
	}
	return len(events) > 0, nil
}

// Save 以乐观并发追加未提交事件，返回本次提交的事件供总线发布
func (r *Repository[T]) Save(ctx context.Context, agg T) ([]DomainEvent, error) {
	pending := agg.Uncommitted()
	if len(pending) == 0 {
		return nil, nil
	}

	if err := r.store.Append(ctx, agg.AggregateID(), pending, agg.Version()); err != nil {
		return nil, err
	}

	agg.SetVersion(agg.Version() + len(pending))
	agg.ClearUncommitted()
	return pending, nil
}
