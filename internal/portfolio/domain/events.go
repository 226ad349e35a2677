package domain

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// RejectionReason 预留拒绝原因
type RejectionReason string

const (
	// ReasonNotAvailable 完全没有可用余额
	ReasonNotAvailable RejectionReason = "NOT_AVAILABLE"
	// ReasonNotEnough 可用余额不足
	ReasonNotEnough RejectionReason = "NOT_ENOUGH_AVAILABLE"
)

// PortfolioCreatedEvent 组合创建事件
type PortfolioCreatedEvent struct {
	eventsourcing.BaseEvent
	UserID   string         `json:"user_id"`
	Currency money.Currency `json:"currency"`
}

// EventType 返回事件类型
func (e *PortfolioCreatedEvent) EventType() string { return "PortfolioCreated" }

// CashDepositedEvent 现金入账事件
type CashDepositedEvent struct {
	eventsourcing.BaseEvent
	Amount money.Money `json:"amount"`
}

// EventType 返回事件类型
func (e *CashDepositedEvent) EventType() string { return "CashDeposited" }

// CashWithdrawnEvent 现金出账事件
type CashWithdrawnEvent struct {
	eventsourcing.BaseEvent
	Amount money.Money `json:"amount"`
}

// EventType 返回事件类型
func (e *CashWithdrawnEvent) EventType() string { return "CashWithdrawn" }

// ItemsAddedEvent 持仓入账事件
type ItemsAddedEvent struct {
	eventsourcing.BaseEvent
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// EventType 返回事件类型
func (e *ItemsAddedEvent) EventType() string { return "ItemsAdded" }

// CashReservedEvent 现金预留成功事件
type CashReservedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	Commission    money.Money `json:"commission"`
}

// EventType 返回事件类型
func (e *CashReservedEvent) EventType() string { return "CashReserved" }

// CashReservationRejectedEvent 现金预留拒绝事件，携带实际可用金额
type CashReservationRejectedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	Reason        RejectionReason `json:"reason"`
	Requested     money.Money     `json:"requested"`
	Available     money.Money     `json:"available"`
}

// EventType 返回事件类型
func (e *CashReservationRejectedEvent) EventType() string { return "CashReservationRejected" }

// CashReservationConfirmedEvent 现金预留确认事件，确认部分永久离开组合
type CashReservationConfirmedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	Commission    money.Money `json:"commission"`
}

// EventType 返回事件类型
func (e *CashReservationConfirmedEvent) EventType() string { return "CashReservationConfirmed" }

// CashReservationCancelledEvent 现金预留取消事件，预留部分回到可用余额
type CashReservationCancelledEvent struct {
	eventsourcing.BaseEvent
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	Commission    money.Money `json:"commission"`
}

// EventType 返回事件类型
func (e *CashReservationCancelledEvent) EventType() string { return "CashReservationCancelled" }

// CashReservedClearedEvent 现金预留清理事件，释放部分执行后的残余预留
type CashReservedClearedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string      `json:"transaction_id"`
	Residual      money.Money `json:"residual"`
}

// EventType 返回事件类型
func (e *CashReservedClearedEvent) EventType() string { return "CashReservedCleared" }

// ItemReservedEvent 持仓预留成功事件
type ItemReservedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Commission    decimal.Decimal `json:"commission"`
}

// EventType 返回事件类型
func (e *ItemReservedEvent) EventType() string { return "ItemReserved" }

// ItemReservationRejectedEvent 持仓预留拒绝事件，携带实际可用数量
type ItemReservationRejectedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	Reason        RejectionReason `json:"reason"`
	Requested     decimal.Decimal `json:"requested"`
	Available     decimal.Decimal `json:"available"`
}

// EventType 返回事件类型
func (e *ItemReservationRejectedEvent) EventType() string { return "ItemReservationRejected" }

// ItemReservationConfirmedEvent 持仓预留确认事件
type ItemReservationConfirmedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Commission    decimal.Decimal `json:"commission"`
}

// EventType 返回事件类型
func (e *ItemReservationConfirmedEvent) EventType() string { return "ItemReservationConfirmed" }

// ItemReservationCancelledEvent 持仓预留取消事件
type ItemReservationCancelledEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Commission    decimal.Decimal `json:"commission"`
}

// EventType 返回事件类型
func (e *ItemReservationCancelledEvent) EventType() string { return "ItemReservationCancelled" }

// ItemReservationClearedEvent 持仓预留清理事件
type ItemReservationClearedEvent struct {
	eventsourcing.BaseEvent
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	Residual      decimal.Decimal `json:"residual"`
}

// EventType 返回事件类型
func (e *ItemReservationClearedEvent) EventType() string { return "ItemReservationCleared" }

// Events 返回本上下文全部事件原型，供注册表登记
func Events() []eventsourcing.DomainEvent {
	return []eventsourcing.DomainEvent{
		&PortfolioCreatedEvent{},
		&CashDepositedEvent{},
		&CashWithdrawnEvent{},
		&ItemsAddedEvent{},
		&CashReservedEvent{},
		&CashReservationRejectedEvent{},
		&CashReservationConfirmedEvent{},
		&CashReservationCancelledEvent{},
		&CashReservedClearedEvent{},
		&ItemReservedEvent{},
		&ItemReservationRejectedEvent{},
		&ItemReservationConfirmedEvent{},
		&ItemReservationCancelledEvent{},
		&ItemReservationClearedEvent{},
	}
}
