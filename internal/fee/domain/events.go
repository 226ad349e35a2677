package domain

import (
	"time"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// FeeRole 费用角色
type FeeRole string

const (
	// RolePayable 应付费用（交易方欠交易所）
	RolePayable FeeRole = "PAYABLE"
	// RolePaid 已付费用（从预留佣金中扣收）
	RolePaid FeeRole = "PAID"
	// RoleReceivable 应收费用
	RoleReceivable FeeRole = "RECEIVABLE"
)

// CancelReason 费用/冲销取消原因
type CancelReason string

const (
	// ReasonOffsetError 冲销失败导致的费用取消
	ReasonOffsetError CancelReason = "OFFSET_ERROR"
	// ReasonAmountNotMatched 借贷金额不平
	ReasonAmountNotMatched CancelReason = "AMOUNT_NOT_MATCHED"
)

// FeeItem 冲销中的一条费用分录
type FeeItem struct {
	FeeID  string      `json:"fee_id"`
	Amount money.Money `json:"amount"`
}

// FeeSettlementStartedEvent 费用结算启动事件，固定本次结算涉及的全部标识
type FeeSettlementStartedEvent struct {
	eventsourcing.BaseEvent
	TradeTransactionID string      `json:"trade_transaction_id"`
	Amount             money.Money `json:"amount"`
	PayableFeeID       string      `json:"payable_fee_id"`
	PaidFeeID          string      `json:"paid_fee_id"`
	OffsetID           string      `json:"offset_id"`
	DueDate            time.Time   `json:"due_date"`
}

// EventType 返回事件类型
func (e *FeeSettlementStartedEvent) EventType() string { return "FeeSettlementStarted" }

// FeeCreatedEvent 费用创建事件
type FeeCreatedEvent struct {
	eventsourcing.BaseEvent
	Role              FeeRole     `json:"role"`
	Amount            money.Money `json:"amount"`
	DueDate           time.Time   `json:"due_date"`
	BusinessReference string      `json:"business_reference"`
}

// EventType 返回事件类型
func (e *FeeCreatedEvent) EventType() string { return "FeeCreated" }

// FeeConfirmedEvent 费用确认事件
type FeeConfirmedEvent struct {
	eventsourcing.BaseEvent
	Role   FeeRole     `json:"role"`
	Amount money.Money `json:"amount"`
}

// EventType 返回事件类型
func (e *FeeConfirmedEvent) EventType() string { return "FeeConfirmed" }

// FeeCancelledEvent 费用取消事件
type FeeCancelledEvent struct {
	eventsourcing.BaseEvent
	Role   FeeRole      `json:"role"`
	Reason CancelReason `json:"reason"`
}

// EventType 返回事件类型
func (e *FeeCancelledEvent) EventType() string { return "FeeCancelled" }

// FeeOffsetedEvent 费用冲销完成事件
type FeeOffsetedEvent struct {
	eventsourcing.BaseEvent
	Role     FeeRole `json:"role"`
	OffsetID string  `json:"offset_id"`
}

// EventType 返回事件类型
func (e *FeeOffsetedEvent) EventType() string { return "FeeOffseted" }

// OffsetCreatedEvent 冲销创建事件，携带借贷两侧分录
type OffsetCreatedEvent struct {
	eventsourcing.BaseEvent
	BusinessReference string      `json:"business_reference"`
	DebitItems        []FeeItem   `json:"debit_items"`
	CreditItems       []FeeItem   `json:"credit_items"`
	Amount            money.Money `json:"amount"`
}

// EventType 返回事件类型
func (e *OffsetCreatedEvent) EventType() string { return "OffsetCreated" }

// FeesOffsetedEvent 冲销成功事件：借贷两侧与冲销金额完全相等
type FeesOffsetedEvent struct {
	eventsourcing.BaseEvent
	DebitFeeIDs  []string    `json:"debit_fee_ids"`
	CreditFeeIDs []string    `json:"credit_fee_ids"`
	Amount       money.Money `json:"amount"`
}

// EventType 返回事件类型
func (e *FeesOffsetedEvent) EventType() string { return "FeesOffseted" }

// OffsetAmountNotMatchedEvent 冲销金额不平事件
type OffsetAmountNotMatchedEvent struct {
	eventsourcing.BaseEvent
	Reason      CancelReason `json:"reason"`
	Expected    money.Money  `json:"expected"`
	DebitTotal  money.Money  `json:"debit_total"`
	CreditTotal money.Money  `json:"credit_total"`
}

// EventType 返回事件类型
func (e *OffsetAmountNotMatchedEvent) EventType() string { return "OffsetAmountNotMatched" }

// OffsetCancelledEvent 冲销取消事件
type OffsetCancelledEvent struct {
	eventsourcing.BaseEvent
	DebitFeeIDs  []string `json:"debit_fee_ids"`
	CreditFeeIDs []string `json:"credit_fee_ids"`
}

// EventType 返回事件类型
func (e *OffsetCancelledEvent) EventType() string { return "OffsetCancelled" }

// Events 返回本上下文全部事件原型，供注册表登记
func Events() []eventsourcing.DomainEvent {
	return []eventsourcing.DomainEvent{
		&FeeSettlementStartedEvent{},
		&FeeCreatedEvent{},
		&FeeConfirmedEvent{},
		&FeeCancelledEvent{},
		&FeeOffsetedEvent{},
		&OffsetCreatedEvent{},
		&FeesOffsetedEvent{},
		&OffsetAmountNotMatchedEvent{},
		&OffsetCancelledEvent{},
	}
}
