// Package domain 交易聚合：一笔订单的交易生命周期状态机
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/fsm"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// State 交易状态
type State string

const (
	StateStarted           State = "STARTED"
	StateConfirmed         State = "CONFIRMED"
	StatePartiallyExecuted State = "PARTIALLY_EXECUTED"
	StateExecuted          State = "EXECUTED"
	StateCancelled         State = "CANCELLED"
)

const (
	triggerConfirm        = "CONFIRM"
	triggerExecutePartial = "EXECUTE_PARTIAL"
	triggerExecuteFull    = "EXECUTE_FULL"
	triggerCancel         = "CANCEL"
)

var (
	// ErrTransactionAlreadyStarted 交易重复启动
	ErrTransactionAlreadyStarted = errors.New("transaction already started")
	// ErrTransactionNotStarted 交易尚未启动
	ErrTransactionNotStarted = errors.New("transaction not started")
	// ErrInvalidTransaction 交易参数非法
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrExecutionOvershoot 执行量超过交易总量，属于编程契约违约
	ErrExecutionOvershoot = errors.New("execution exceeds total quantity")
	// ErrIllegalStateTransition 当前状态下不允许该操作
	ErrIllegalStateTransition = errors.New("illegal state transition")
)

// Transaction 交易聚合。只做数量与均价簿记，资金流转交由组合与 saga 完成
type Transaction struct {
	eventsourcing.AggregateBase

	started       bool
	state         State
	tradeType     TradeType
	orderBookID   string
	portfolioID   string
	itemID        string
	totalQuantity decimal.Decimal
	pricePerItem  money.Money
	commission    money.Money

	executedQuantity decimal.Decimal
	averagePrice     decimal.Decimal
}

// NewTransaction 创建空交易（仓储回放前的零值）
func NewTransaction() *Transaction {
	return &Transaction{}
}

// State 当前状态
func (t *Transaction) State() State { return t.state }

// TradeType 交易方向
func (t *Transaction) TradeType() TradeType { return t.tradeType }

// OrderBookID 目标订单簿
func (t *Transaction) OrderBookID() string { return t.orderBookID }

// PortfolioID 所属组合
func (t *Transaction) PortfolioID() string { return t.portfolioID }

// TotalQuantity 交易总量
func (t *Transaction) TotalQuantity() decimal.Decimal { return t.totalQuantity }

// ExecutedQuantity 已执行数量
func (t *Transaction) ExecutedQuantity() decimal.Decimal { return t.executedQuantity }

// AveragePrice 成交量加权平均价
func (t *Transaction) AveragePrice() money.Money {
	return money.New(t.pricePerItem.Currency, t.averagePrice)
}

// Start 启动交易
func (t *Transaction) Start(id string, tradeType TradeType, orderBookID, portfolioID, itemID string, quantity decimal.Decimal, price, commission money.Money) error {
	if t.started {
		return ErrTransactionAlreadyStarted
	}
	if tradeType != TradeTypeBuy && tradeType != TradeTypeSell {
		return fmt.Errorf("%w: unknown trade type %q", ErrInvalidTransaction, tradeType)
	}
	if orderBookID == "" || portfolioID == "" || itemID == "" {
		return fmt.Errorf("%w: order book, portfolio and item required", ErrInvalidTransaction)
	}
	if !quantity.IsPositive() || !price.IsPositive() {
		return fmt.Errorf("%w: quantity and price must be positive", ErrInvalidTransaction)
	}
	if commission.IsNegative() {
		return fmt.Errorf("%w: commission must be non-negative", ErrInvalidTransaction)
	}

	t.SetAggregateID(id)
	t.raise(&TransactionStartedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(id),
		TradeType:     tradeType,
		OrderBookID:   orderBookID,
		PortfolioID:   portfolioID,
		ItemID:        itemID,
		TotalQuantity: quantity,
		PricePerItem:  price,
		Commission:    commission,
	})
	return nil
}

// Confirm 确认交易（预留成功后由 saga 触发）
func (t *Transaction) Confirm(ctx context.Context) error {
	if !t.started {
		return ErrTransactionNotStarted
	}
	if err := t.machine().Trigger(ctx, triggerConfirm); err != nil {
		return fmt.Errorf("%w: confirm in state %s", ErrIllegalStateTransition, t.state)
	}
	t.raise(&TransactionConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(t.AggregateID()),
		TradeType: t.tradeType,
	})
	return nil
}

// Execute 记录一个执行切片。执行量超过总量属于契约违约，聚合状态不变
func (t *Transaction) Execute(ctx context.Context, quantity decimal.Decimal, price money.Money) error {
	if !t.started {
		return ErrTransactionNotStarted
	}
	if !quantity.IsPositive() || !price.IsPositive() {
		return fmt.Errorf("%w: quantity and price must be positive", ErrInvalidTransaction)
	}

	newExecuted := t.executedQuantity.Add(quantity)
	if newExecuted.GreaterThan(t.totalQuantity) {
		return fmt.Errorf("%w: total %s, already executed %s, incoming %s",
			ErrExecutionOvershoot, t.totalQuantity, t.executedQuantity, quantity)
	}

	trigger := triggerExecutePartial
	if newExecuted.Equal(t.totalQuantity) {
		trigger = triggerExecuteFull
	}
	if err := t.machine().Trigger(ctx, trigger); err != nil {
		return fmt.Errorf("%w: execute in state %s", ErrIllegalStateTransition, t.state)
	}

	if trigger == triggerExecuteFull {
		avg := vwap(t.executedQuantity, t.averagePrice, quantity, price.Amount)
		t.raise(&TransactionExecutedEvent{
			BaseEvent:    eventsourcing.NewBaseEvent(t.AggregateID()),
			TradeType:    t.tradeType,
			Quantity:     quantity,
			Price:        price,
			AveragePrice: money.New(price.Currency, avg),
		})
		return nil
	}

	t.raise(&TransactionPartiallyExecutedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(t.AggregateID()),
		TradeType:     t.tradeType,
		Quantity:      quantity,
		TotalExecuted: newExecuted,
		Price:         price,
	})
	return nil
}

// Cancel 取消交易，仅在未终结状态下合法，记录未执行的剩余数量
func (t *Transaction) Cancel(ctx context.Context) error {
	if !t.started {
		return ErrTransactionNotStarted
	}
	if err := t.machine().Trigger(ctx, triggerCancel); err != nil {
		return fmt.Errorf("%w: cancel in state %s", ErrIllegalStateTransition, t.state)
	}
	t.raise(&TransactionCancelledEvent{
		BaseEvent:         eventsourcing.NewBaseEvent(t.AggregateID()),
		TradeType:         t.tradeType,
		RemainingQuantity: t.totalQuantity.Sub(t.executedQuantity),
		ExecutedQuantity:  t.executedQuantity,
	})
	return nil
}

// machine 依据当前状态构造状态机，用于合法性校验
func (t *Transaction) machine() *fsm.Machine[string, string] {
	m := fsm.NewMachine[string, string](string(t.state))
	m.AddTransition(string(StateStarted), triggerConfirm, string(StateConfirmed))
	m.AddTransition(string(StateStarted), triggerCancel, string(StateCancelled))
	m.AddTransition(string(StateConfirmed), triggerExecutePartial, string(StatePartiallyExecuted))
	m.AddTransition(string(StateConfirmed), triggerExecuteFull, string(StateExecuted))
	m.AddTransition(string(StateConfirmed), triggerCancel, string(StateCancelled))
	m.AddTransition(string(StatePartiallyExecuted), triggerExecutePartial, string(StatePartiallyExecuted))
	m.AddTransition(string(StatePartiallyExecuted), triggerExecuteFull, string(StateExecuted))
	m.AddTransition(string(StatePartiallyExecuted), triggerCancel, string(StateCancelled))
	return m
}

// Apply 事件折叠
func (t *Transaction) Apply(event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *TransactionStartedEvent:
		t.started = true
		t.state = StateStarted
		t.tradeType = e.TradeType
		t.orderBookID = e.OrderBookID
		t.portfolioID = e.PortfolioID
		t.itemID = e.ItemID
		t.totalQuantity = e.TotalQuantity
		t.pricePerItem = e.PricePerItem
		t.commission = e.Commission
	case *TransactionConfirmedEvent:
		t.state = StateConfirmed
	case *TransactionPartiallyExecutedEvent:
		t.state = StatePartiallyExecuted
		t.averagePrice = vwap(t.executedQuantity, t.averagePrice, e.Quantity, e.Price.Amount)
		t.executedQuantity = t.executedQuantity.Add(e.Quantity)
	case *TransactionExecutedEvent:
		t.state = StateExecuted
		t.averagePrice = vwap(t.executedQuantity, t.averagePrice, e.Quantity, e.Price.Amount)
		t.executedQuantity = t.executedQuantity.Add(e.Quantity)
	case *TransactionCancelledEvent:
		t.state = StateCancelled
	}
}

// vwap 成交量加权平均价 (oldExec*oldAvg + delta*price) / newExec
func vwap(oldExecuted, oldAverage, delta, price decimal.Decimal) decimal.Decimal {
	newExecuted := oldExecuted.Add(delta)
	if newExecuted.IsZero() {
		return decimal.Zero
	}
	return oldExecuted.Mul(oldAverage).Add(delta.Mul(price)).Div(newExecuted)
}

func (t *Transaction) raise(event eventsourcing.DomainEvent) {
	t.Apply(event)
	t.Record(event)
}
