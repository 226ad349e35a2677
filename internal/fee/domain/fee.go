// Package domain 费用与冲销聚合：佣金结算的双分录账本
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/fsm"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// FeeStatus 费用状态
type FeeStatus string

const (
	FeeStatusPending   FeeStatus = "PENDING"
	FeeStatusConfirmed FeeStatus = "CONFIRMED"
	FeeStatusOffset    FeeStatus = "OFFSET"
	FeeStatusCancelled FeeStatus = "CANCELLED"
)

const (
	feeTriggerConfirm = "CONFIRM"
	feeTriggerOffset  = "OFFSET"
	feeTriggerCancel  = "CANCEL"
)

var (
	// ErrFeeAlreadyCreated 费用重复创建
	ErrFeeAlreadyCreated = errors.New("fee already created")
	// ErrFeeNotCreated 费用尚未创建
	ErrFeeNotCreated = errors.New("fee not created")
	// ErrInvalidFee 费用参数非法
	ErrInvalidFee = errors.New("invalid fee")
	// ErrFeeIllegalTransition 当前状态下不允许该操作
	ErrFeeIllegalTransition = errors.New("illegal fee state transition")
)

// Fee 费用聚合
type Fee struct {
	eventsourcing.AggregateBase

	created           bool
	status            FeeStatus
	role              FeeRole
	amount            money.Money
	dueDate           time.Time
	businessReference string
}

// NewFee 创建空费用（仓储回放前的零值）
func NewFee() *Fee {
	return &Fee{}
}

// Status 当前状态
func (f *Fee) Status() FeeStatus { return f.status }

// Role 费用角色
func (f *Fee) Role() FeeRole { return f.role }

// Amount 费用金额
func (f *Fee) Amount() money.Money { return f.amount }

// Create 创建费用，初始状态 PENDING
func (f *Fee) Create(id string, role FeeRole, amount money.Money, dueDate time.Time, businessReference string) error {
	if f.created {
		return ErrFeeAlreadyCreated
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidFee)
	}
	if businessReference == "" {
		return fmt.Errorf("%w: business reference required", ErrInvalidFee)
	}

	f.SetAggregateID(id)
	f.raise(&FeeCreatedEvent{
		BaseEvent:         eventsourcing.NewBaseEvent(id),
		Role:              role,
		Amount:            amount,
		DueDate:           dueDate,
		BusinessReference: businessReference,
	})
	return nil
}

// Confirm 确认费用
func (f *Fee) Confirm(ctx context.Context) error {
	if !f.created {
		return ErrFeeNotCreated
	}
	if err := f.machine().Trigger(ctx, feeTriggerConfirm); err != nil {
		return fmt.Errorf("%w: confirm in status %s", ErrFeeIllegalTransition, f.status)
	}
	f.raise(&FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(f.AggregateID()),
		Role:      f.role,
		Amount:    f.amount,
	})
	return nil
}

// MarkOffseted 冲销完成，终结状态
func (f *Fee) MarkOffseted(ctx context.Context, offsetID string) error {
	if !f.created {
		return ErrFeeNotCreated
	}
	if err := f.machine().Trigger(ctx, feeTriggerOffset); err != nil {
		return fmt.Errorf("%w: offset in status %s", ErrFeeIllegalTransition, f.status)
	}
	f.raise(&FeeOffsetedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(f.AggregateID()),
		Role:      f.role,
		OffsetID:  offsetID,
	})
	return nil
}

// Cancel 取消费用
func (f *Fee) Cancel(ctx context.Context, reason CancelReason) error {
	if !f.created {
		return ErrFeeNotCreated
	}
	if f.status == FeeStatusCancelled {
		return nil // 重复取消幂等跳过
	}
	if err := f.machine().Trigger(ctx, feeTriggerCancel); err != nil {
		return fmt.Errorf("%w: cancel in status %s", ErrFeeIllegalTransition, f.status)
	}
	f.raise(&FeeCancelledEvent{
		BaseEvent: eventsourcing.NewBaseEvent(f.AggregateID()),
		Role:      f.role,
		Reason:    reason,
	})
	return nil
}

func (f *Fee) machine() *fsm.Machine[string, string] {
	m := fsm.NewMachine[string, string](string(f.status))
	m.AddTransition(string(FeeStatusPending), feeTriggerConfirm, string(FeeStatusConfirmed))
	m.AddTransition(string(FeeStatusConfirmed), feeTriggerOffset, string(FeeStatusOffset))
	m.AddTransition(string(FeeStatusPending), feeTriggerCancel, string(FeeStatusCancelled))
	m.AddTransition(string(FeeStatusConfirmed), feeTriggerCancel, string(FeeStatusCancelled))
	return m
}

// Apply 事件折叠
func (f *Fee) Apply(event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *FeeCreatedEvent:
		f.created = true
		f.status = FeeStatusPending
		f.role = e.Role
		f.amount = e.Amount
		f.dueDate = e.DueDate
		f.businessReference = e.BusinessReference
	case *FeeConfirmedEvent:
		f.status = FeeStatusConfirmed
	case *FeeOffsetedEvent:
		f.status = FeeStatusOffset
	case *FeeCancelledEvent:
		f.status = FeeStatusCancelled
	}
}

func (f *Fee) raise(event eventsourcing.DomainEvent) {
	f.Apply(event)
	f.Record(event)
}
