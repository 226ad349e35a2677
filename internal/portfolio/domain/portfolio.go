// Package domain 组合聚合：现金与持仓余额的两阶段预留账本
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

var (
	// ErrPortfolioAlreadyCreated 组合重复创建
	ErrPortfolioAlreadyCreated = errors.New("portfolio already created")
	// ErrPortfolioNotCreated 组合尚未创建
	ErrPortfolioNotCreated = errors.New("portfolio not created")
	// ErrInvalidAmount 金额/数量非法
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrCurrencyMismatch 货币与组合计价货币不一致
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInsufficientFunds 可用余额不足（出账）
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrReservationExceeded 确认/取消的数额超过剩余预留，属于编程契约违约
	ErrReservationExceeded = errors.New("amount exceeds remaining reservation")
)

// balance 单一资产余额：总量与预留量。不变量 0 <= reserved <= total
type balance struct {
	total    decimal.Decimal
	reserved decimal.Decimal
}

func (b *balance) available() decimal.Decimal {
	return b.total.Sub(b.reserved)
}

// reservation 以交易标识为键的预留记录，追踪尚未确认/释放的部分
type reservation struct {
	itemID    string // 现金预留为空
	remaining decimal.Decimal
}

// Portfolio 组合聚合
type Portfolio struct {
	eventsourcing.AggregateBase

	created  bool
	userID   string
	currency money.Currency

	cash             balance
	items            map[string]*balance
	cashReservations map[string]*reservation
	itemReservations map[string]*reservation
}

// NewPortfolio 创建空组合（仓储回放前的零值）
func NewPortfolio() *Portfolio {
	return &Portfolio{
		items:            make(map[string]*balance),
		cashReservations: make(map[string]*reservation),
		itemReservations: make(map[string]*reservation),
	}
}

// UserID 返回所属用户
func (p *Portfolio) UserID() string { return p.userID }

// Currency 返回计价货币
func (p *Portfolio) Currency() money.Currency { return p.currency }

// CashTotal 现金总量
func (p *Portfolio) CashTotal() decimal.Decimal { return p.cash.total }

// CashReserved 现金预留量
func (p *Portfolio) CashReserved() decimal.Decimal { return p.cash.reserved }

// ItemTotal 持仓总量
func (p *Portfolio) ItemTotal(itemID string) decimal.Decimal {
	if b, ok := p.items[itemID]; ok {
		return b.total
	}
	return decimal.Zero
}

// ItemReserved 持仓预留量
func (p *Portfolio) ItemReserved(itemID string) decimal.Decimal {
	if b, ok := p.items[itemID]; ok {
		return b.reserved
	}
	return decimal.Zero
}

// Create 创建组合
func (p *Portfolio) Create(id, userID string, currency money.Currency) error {
	if p.created {
		return ErrPortfolioAlreadyCreated
	}
	if userID == "" || currency == "" {
		return fmt.Errorf("%w: user and currency required", ErrInvalidAmount)
	}

	p.SetAggregateID(id)
	p.raise(&PortfolioCreatedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(id),
		UserID:    userID,
		Currency:  currency,
	})
	return nil
}

// Deposit 现金入账，总是成功
func (p *Portfolio) Deposit(amount money.Money) error {
	if err := p.checkCash(amount); err != nil {
		return err
	}
	p.raise(&CashDepositedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(p.AggregateID()),
		Amount:    amount,
	})
	return nil
}

// Withdraw 现金出账，可用余额不足时拒绝且状态不变
func (p *Portfolio) Withdraw(amount money.Money) error {
	if err := p.checkCash(amount); err != nil {
		return err
	}
	if amount.Amount.GreaterThan(p.cash.available()) {
		return fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientFunds, p.cash.available(), amount.Amount)
	}
	p.raise(&CashWithdrawnEvent{
		BaseEvent: eventsourcing.NewBaseEvent(p.AggregateID()),
		Amount:    amount,
	})
	return nil
}

// AddItems 持仓入账，总是成功
func (p *Portfolio) AddItems(itemID string, quantity decimal.Decimal) error {
	if !p.created {
		return ErrPortfolioNotCreated
	}
	if itemID == "" || !quantity.IsPositive() {
		return fmt.Errorf("%w: positive quantity and item required", ErrInvalidAmount)
	}
	p.raise(&ItemsAddedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(p.AggregateID()),
		ItemID:    itemID,
		Quantity:  quantity,
	})
	return nil
}

// ReserveCash 预留现金（买方：金额 + 佣金）。余额不足以拒绝事件表达，不是错误
func (p *Portfolio) ReserveCash(transactionID string, amount, commission money.Money) error {
	if err := p.checkCash(amount); err != nil {
		return err
	}
	if commission.Currency != p.currency {
		return fmt.Errorf("%w: commission %s vs %s", ErrCurrencyMismatch, commission.Currency, p.currency)
	}
	// 同一交易的重复预留请求幂等跳过
	if _, ok := p.cashReservations[transactionID]; ok {
		return nil
	}

	needed := amount.Amount.Add(commission.Amount)
	if p.cash.total.IsZero() {
		p.raise(&CashReservationRejectedEvent{
			BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
			TransactionID: transactionID,
			Reason:        ReasonNotAvailable,
			Requested:     money.New(p.currency, needed),
			Available:     money.Zero(p.currency),
		})
		return nil
	}
	if p.cash.available().LessThan(needed) {
		p.raise(&CashReservationRejectedEvent{
			BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
			TransactionID: transactionID,
			Reason:        ReasonNotEnough,
			Requested:     money.New(p.currency, needed),
			Available:     money.New(p.currency, p.cash.available()),
		})
		return nil
	}

	p.raise(&CashReservedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		Amount:        amount,
		Commission:    commission,
	})
	return nil
}

// ConfirmCashReservation 确认已执行部分，确认额连同预留一起永久减少。
// 确认额超过剩余预留属于契约违约，聚合状态不变
func (p *Portfolio) ConfirmCashReservation(transactionID string, amount, commission money.Money) error {
	rec, ok := p.cashReservations[transactionID]
	if !ok {
		return nil // 已全部确认/取消，重复投递幂等跳过
	}
	confirmed := amount.Amount.Add(commission.Amount)
	if confirmed.GreaterThan(rec.remaining) {
		return fmt.Errorf("%w: remaining %s, confirming %s", ErrReservationExceeded, rec.remaining, confirmed)
	}
	p.raise(&CashReservationConfirmedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		Amount:        amount,
		Commission:    commission,
	})
	return nil
}

// CancelCashReservation 取消预留，预留额回到可用余额，总量不变
func (p *Portfolio) CancelCashReservation(transactionID string, amount, commission money.Money) error {
	rec, ok := p.cashReservations[transactionID]
	if !ok {
		return nil
	}
	cancelled := amount.Amount.Add(commission.Amount)
	if cancelled.GreaterThan(rec.remaining) {
		return fmt.Errorf("%w: remaining %s, cancelling %s", ErrReservationExceeded, rec.remaining, cancelled)
	}
	p.raise(&CashReservationCancelledEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		Amount:        amount,
		Commission:    commission,
	})
	return nil
}

// ClearCashReservation 释放部分执行后的残余预留
func (p *Portfolio) ClearCashReservation(transactionID string) error {
	rec, ok := p.cashReservations[transactionID]
	if !ok || !rec.remaining.IsPositive() {
		return nil
	}
	p.raise(&CashReservedClearedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		Residual:      money.New(p.currency, rec.remaining),
	})
	return nil
}

// ReserveItems 预留持仓（卖方：数量 + 以持仓计的佣金）
func (p *Portfolio) ReserveItems(transactionID, itemID string, quantity, commission decimal.Decimal) error {
	if !p.created {
		return ErrPortfolioNotCreated
	}
	if itemID == "" || !quantity.IsPositive() || commission.IsNegative() {
		return fmt.Errorf("%w: positive quantity required", ErrInvalidAmount)
	}
	if _, ok := p.itemReservations[transactionID]; ok {
		return nil
	}

	needed := quantity.Add(commission)
	bal := p.items[itemID]
	if bal == nil || bal.total.IsZero() {
		p.raise(&ItemReservationRejectedEvent{
			BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
			TransactionID: transactionID,
			ItemID:        itemID,
			Reason:        ReasonNotAvailable,
			Requested:     needed,
			Available:     decimal.Zero,
		})
		return nil
	}
	if bal.available().LessThan(needed) {
		p.raise(&ItemReservationRejectedEvent{
			BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
			TransactionID: transactionID,
			ItemID:        itemID,
			Reason:        ReasonNotEnough,
			Requested:     needed,
			Available:     bal.available(),
		})
		return nil
	}

	p.raise(&ItemReservedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		ItemID:        itemID,
		Quantity:      quantity,
		Commission:    commission,
	})
	return nil
}

// ConfirmItemReservation 确认已执行的持仓预留
func (p *Portfolio) ConfirmItemReservation(transactionID string, quantity, commission decimal.Decimal) error {
	rec, ok := p.itemReservations[transactionID]
	if !ok {
		return nil
	}
	confirmed := quantity.Add(commission)
	if confirmed.GreaterThan(rec.remaining) {
		return fmt.Errorf("%w: remaining %s, confirming %s", ErrReservationExceeded, rec.remaining, confirmed)
	}
	p.raise(&ItemReservationConfirmedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		ItemID:        rec.itemID,
		Quantity:      quantity,
		Commission:    commission,
	})
	return nil
}

// CancelItemReservation 取消持仓预留
func (p *Portfolio) CancelItemReservation(transactionID string, quantity, commission decimal.Decimal) error {
	rec, ok := p.itemReservations[transactionID]
	if !ok {
		return nil
	}
	cancelled := quantity.Add(commission)
	if cancelled.GreaterThan(rec.remaining) {
		return fmt.Errorf("%w: remaining %s, cancelling %s", ErrReservationExceeded, rec.remaining, cancelled)
	}
	p.raise(&ItemReservationCancelledEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		ItemID:        rec.itemID,
		Quantity:      quantity,
		Commission:    commission,
	})
	return nil
}

// ClearItemReservation 释放部分执行后的残余持仓预留
func (p *Portfolio) ClearItemReservation(transactionID string) error {
	rec, ok := p.itemReservations[transactionID]
	if !ok || !rec.remaining.IsPositive() {
		return nil
	}
	p.raise(&ItemReservationClearedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(p.AggregateID()),
		TransactionID: transactionID,
		ItemID:        rec.itemID,
		Residual:      rec.remaining,
	})
	return nil
}

// Apply 事件折叠
func (p *Portfolio) Apply(event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *PortfolioCreatedEvent:
		p.created = true
		p.userID = e.UserID
		p.currency = e.Currency
	case *CashDepositedEvent:
		p.cash.total = p.cash.total.Add(e.Amount.Amount)
	case *CashWithdrawnEvent:
		p.cash.total = p.cash.total.Sub(e.Amount.Amount)
	case *ItemsAddedEvent:
		bal := p.itemBalance(e.ItemID)
		bal.total = bal.total.Add(e.Quantity)
	case *CashReservedEvent:
		reserved := e.Amount.Amount.Add(e.Commission.Amount)
		p.cash.reserved = p.cash.reserved.Add(reserved)
		p.cashReservations[e.TransactionID] = &reservation{remaining: reserved}
	case *CashReservationConfirmedEvent:
		confirmed := e.Amount.Amount.Add(e.Commission.Amount)
		p.cash.total = p.cash.total.Sub(confirmed)
		p.cash.reserved = p.cash.reserved.Sub(confirmed)
		settleReservation(p.cashReservations, e.TransactionID, confirmed)
	case *CashReservationCancelledEvent:
		cancelled := e.Amount.Amount.Add(e.Commission.Amount)
		p.cash.reserved = p.cash.reserved.Sub(cancelled)
		settleReservation(p.cashReservations, e.TransactionID, cancelled)
	case *CashReservedClearedEvent:
		p.cash.reserved = p.cash.reserved.Sub(e.Residual.Amount)
		delete(p.cashReservations, e.TransactionID)
	case *ItemReservedEvent:
		reserved := e.Quantity.Add(e.Commission)
		bal := p.itemBalance(e.ItemID)
		bal.reserved = bal.reserved.Add(reserved)
		p.itemReservations[e.TransactionID] = &reservation{itemID: e.ItemID, remaining: reserved}
	case *ItemReservationConfirmedEvent:
		confirmed := e.Quantity.Add(e.Commission)
		bal := p.itemBalance(e.ItemID)
		bal.total = bal.total.Sub(confirmed)
		bal.reserved = bal.reserved.Sub(confirmed)
		settleReservation(p.itemReservations, e.TransactionID, confirmed)
	case *ItemReservationCancelledEvent:
		cancelled := e.Quantity.Add(e.Commission)
		bal := p.itemBalance(e.ItemID)
		bal.reserved = bal.reserved.Sub(cancelled)
		settleReservation(p.itemReservations, e.TransactionID, cancelled)
	case *ItemReservationClearedEvent:
		bal := p.itemBalance(e.ItemID)
		bal.reserved = bal.reserved.Sub(e.Residual)
		delete(p.itemReservations, e.TransactionID)
	}
}

func (p *Portfolio) itemBalance(itemID string) *balance {
	bal, ok := p.items[itemID]
	if !ok {
		bal = &balance{}
		p.items[itemID] = bal
	}
	return bal
}

func settleReservation(recs map[string]*reservation, transactionID string, settled decimal.Decimal) {
	rec, ok := recs[transactionID]
	if !ok {
		return
	}
	rec.remaining = rec.remaining.Sub(settled)
	if !rec.remaining.IsPositive() {
		delete(recs, transactionID)
	}
}

func (p *Portfolio) checkCash(amount money.Money) error {
	if !p.created {
		return ErrPortfolioNotCreated
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if amount.Currency != p.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, amount.Currency, p.currency)
	}
	return nil
}

func (p *Portfolio) raise(event eventsourcing.DomainEvent) {
	p.Apply(event)
	p.Record(event)
}
