package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/pkg/fsm"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// OffsetStatus 冲销状态
type OffsetStatus string

const (
	OffsetStatusCreated    OffsetStatus = "CREATED"
	OffsetStatusOffset     OffsetStatus = "OFFSET"
	OffsetStatusNotMatched OffsetStatus = "NOT_MATCHED"
	OffsetStatusCancelled  OffsetStatus = "CANCELLED"
)

const (
	offsetTriggerOffset   = "OFFSET"
	offsetTriggerMismatch = "MISMATCH"
	offsetTriggerCancel   = "CANCEL"
)

var (
	// ErrOffsetAlreadyCreated 冲销重复创建
	ErrOffsetAlreadyCreated = errors.New("offset already created")
	// ErrOffsetNotCreated 冲销尚未创建
	ErrOffsetNotCreated = errors.New("offset not created")
	// ErrInvalidOffset 冲销参数非法
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrOffsetIllegalTransition 当前状态下不允许该操作
	ErrOffsetIllegalTransition = errors.New("illegal offset state transition")
)

// Offset 冲销聚合：以借贷分录配平应付与已付两侧费用
type Offset struct {
	eventsourcing.AggregateBase

	created     bool
	status      OffsetStatus
	debitItems  []FeeItem
	creditItems []FeeItem
	amount      money.Money
}

// NewOffset 创建空冲销（仓储回放前的零值）
func NewOffset() *Offset {
	return &Offset{}
}

// Status 当前状态
func (o *Offset) Status() OffsetStatus { return o.status }

// Create 创建冲销
func (o *Offset) Create(id, businessReference string, debitItems, creditItems []FeeItem, amount money.Money) error {
	if o.created {
		return ErrOffsetAlreadyCreated
	}
	if len(debitItems) == 0 || len(creditItems) == 0 {
		return fmt.Errorf("%w: both sides require at least one item", ErrInvalidOffset)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOffset)
	}

	o.SetAggregateID(id)
	o.raise(&OffsetCreatedEvent{
		BaseEvent:         eventsourcing.NewBaseEvent(id),
		BusinessReference: businessReference,
		DebitItems:        debitItems,
		CreditItems:       creditItems,
		Amount:            amount,
	})
	return nil
}

// OffsetFees 执行冲销。借贷两侧合计与冲销金额完全相等时成功，
// 不平以 OffsetAmountNotMatchedEvent 表达，属于业务结果而非错误
func (o *Offset) OffsetFees(ctx context.Context) error {
	if !o.created {
		return ErrOffsetNotCreated
	}

	debitTotal := sumItems(o.amount.Currency, o.debitItems)
	creditTotal := sumItems(o.amount.Currency, o.creditItems)

	if debitTotal.Cmp(o.amount) != 0 || creditTotal.Cmp(o.amount) != 0 {
		if err := o.machine().Trigger(ctx, offsetTriggerMismatch); err != nil {
			return fmt.Errorf("%w: offset in status %s", ErrOffsetIllegalTransition, o.status)
		}
		o.raise(&OffsetAmountNotMatchedEvent{
			BaseEvent:   eventsourcing.NewBaseEvent(o.AggregateID()),
			Reason:      ReasonAmountNotMatched,
			Expected:    o.amount,
			DebitTotal:  debitTotal,
			CreditTotal: creditTotal,
		})
		return nil
	}

	if err := o.machine().Trigger(ctx, offsetTriggerOffset); err != nil {
		return fmt.Errorf("%w: offset in status %s", ErrOffsetIllegalTransition, o.status)
	}
	o.raise(&FeesOffsetedEvent{
		BaseEvent:    eventsourcing.NewBaseEvent(o.AggregateID()),
		DebitFeeIDs:  feeIDs(o.debitItems),
		CreditFeeIDs: feeIDs(o.creditItems),
		Amount:       o.amount,
	})
	return nil
}

// Cancel 取消冲销
func (o *Offset) Cancel(ctx context.Context) error {
	if !o.created {
		return ErrOffsetNotCreated
	}
	if o.status == OffsetStatusCancelled {
		return nil
	}
	if err := o.machine().Trigger(ctx, offsetTriggerCancel); err != nil {
		return fmt.Errorf("%w: cancel in status %s", ErrOffsetIllegalTransition, o.status)
	}
	o.raise(&OffsetCancelledEvent{
		BaseEvent:    eventsourcing.NewBaseEvent(o.AggregateID()),
		DebitFeeIDs:  feeIDs(o.debitItems),
		CreditFeeIDs: feeIDs(o.creditItems),
	})
	return nil
}

func (o *Offset) machine() *fsm.Machine[string, string] {
	m := fsm.NewMachine[string, string](string(o.status))
	m.AddTransition(string(OffsetStatusCreated), offsetTriggerOffset, string(OffsetStatusOffset))
	m.AddTransition(string(OffsetStatusCreated), offsetTriggerMismatch, string(OffsetStatusNotMatched))
	m.AddTransition(string(OffsetStatusCreated), offsetTriggerCancel, string(OffsetStatusCancelled))
	m.AddTransition(string(OffsetStatusNotMatched), offsetTriggerCancel, string(OffsetStatusCancelled))
	return m
}

// Apply 事件折叠
func (o *Offset) Apply(event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *OffsetCreatedEvent:
		o.created = true
		o.status = OffsetStatusCreated
		o.debitItems = e.DebitItems
		o.creditItems = e.CreditItems
		o.amount = e.Amount
	case *FeesOffsetedEvent:
		o.status = OffsetStatusOffset
	case *OffsetAmountNotMatchedEvent:
		o.status = OffsetStatusNotMatched
	case *OffsetCancelledEvent:
		o.status = OffsetStatusCancelled
	}
}

func sumItems(currency money.Currency, items []FeeItem) money.Money {
	total := money.Zero(currency)
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

func feeIDs(items []FeeItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.FeeID)
	}
	return ids
}

func (o *Offset) raise(event eventsourcing.DomainEvent) {
	o.Apply(event)
	o.Record(event)
}
