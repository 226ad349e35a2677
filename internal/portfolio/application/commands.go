package application

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/money"
)

var errMissingField = errors.New("missing required field")

// CreatePortfolioCommand 创建组合
type CreatePortfolioCommand struct {
	PortfolioID string
	UserID      string
	Currency    money.Currency
}

// CommandType 命令类型
func (c CreatePortfolioCommand) CommandType() string { return "CreatePortfolio" }

// TargetID 目标聚合
func (c CreatePortfolioCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c CreatePortfolioCommand) Validate() error {
	if c.PortfolioID == "" || c.UserID == "" || c.Currency == "" {
		return errMissingField
	}
	return nil
}

// DepositCashCommand 现金入账
type DepositCashCommand struct {
	PortfolioID string
	Amount      money.Money
}

// CommandType 命令类型
func (c DepositCashCommand) CommandType() string { return "DepositCash" }

// TargetID 目标聚合
func (c DepositCashCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c DepositCashCommand) Validate() error {
	if c.PortfolioID == "" {
		return errMissingField
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// WithdrawCashCommand 现金出账
type WithdrawCashCommand struct {
	PortfolioID string
	Amount      money.Money
}

// CommandType 命令类型
func (c WithdrawCashCommand) CommandType() string { return "WithdrawCash" }

// TargetID 目标聚合
func (c WithdrawCashCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c WithdrawCashCommand) Validate() error {
	if c.PortfolioID == "" {
		return errMissingField
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// AddItemsCommand 持仓入账
type AddItemsCommand struct {
	PortfolioID string
	ItemID      string
	Quantity    decimal.Decimal
}

// CommandType 命令类型
func (c AddItemsCommand) CommandType() string { return "AddItems" }

// TargetID 目标聚合
func (c AddItemsCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c AddItemsCommand) Validate() error {
	if c.PortfolioID == "" || c.ItemID == "" {
		return errMissingField
	}
	if !c.Quantity.IsPositive() {
		return errors.New("quantity must be positive")
	}
	return nil
}

// ReserveCashCommand 预留现金（买方）
type ReserveCashCommand struct {
	PortfolioID   string
	TransactionID string
	Amount        money.Money
	Commission    money.Money
}

// CommandType 命令类型
func (c ReserveCashCommand) CommandType() string { return "ReserveCash" }

// TargetID 目标聚合
func (c ReserveCashCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ReserveCashCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	if !c.Amount.IsPositive() || c.Commission.IsNegative() {
		return errors.New("amount must be positive, commission non-negative")
	}
	return nil
}

// ConfirmCashReservationCommand 确认现金预留
type ConfirmCashReservationCommand struct {
	PortfolioID   string
	TransactionID string
	Amount        money.Money
	Commission    money.Money
}

// CommandType 命令类型
func (c ConfirmCashReservationCommand) CommandType() string { return "ConfirmCashReservation" }

// TargetID 目标聚合
func (c ConfirmCashReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ConfirmCashReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	if c.Amount.IsNegative() || c.Commission.IsNegative() {
		return errors.New("amounts must be non-negative")
	}
	return nil
}

// CancelCashReservationCommand 取消现金预留
type CancelCashReservationCommand struct {
	PortfolioID   string
	TransactionID string
	Amount        money.Money
	Commission    money.Money
}

// CommandType 命令类型
func (c CancelCashReservationCommand) CommandType() string { return "CancelCashReservation" }

// TargetID 目标聚合
func (c CancelCashReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c CancelCashReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	return nil
}

// ClearCashReservationCommand 清理现金残余预留
type ClearCashReservationCommand struct {
	PortfolioID   string
	TransactionID string
}

// CommandType 命令类型
func (c ClearCashReservationCommand) CommandType() string { return "ClearCashReservation" }

// TargetID 目标聚合
func (c ClearCashReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ClearCashReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	return nil
}

// ReserveItemsCommand 预留持仓（卖方）
type ReserveItemsCommand struct {
	PortfolioID   string
	TransactionID string
	ItemID        string
	Quantity      decimal.Decimal
	Commission    decimal.Decimal
}

// CommandType 命令类型
func (c ReserveItemsCommand) CommandType() string { return "ReserveItems" }

// TargetID 目标聚合
func (c ReserveItemsCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ReserveItemsCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" || c.ItemID == "" {
		return errMissingField
	}
	if !c.Quantity.IsPositive() || c.Commission.IsNegative() {
		return errors.New("quantity must be positive, commission non-negative")
	}
	return nil
}

// ConfirmItemReservationCommand 确认持仓预留
type ConfirmItemReservationCommand struct {
	PortfolioID   string
	TransactionID string
	Quantity      decimal.Decimal
	Commission    decimal.Decimal
}

// CommandType 命令类型
func (c ConfirmItemReservationCommand) CommandType() string { return "ConfirmItemReservation" }

// TargetID 目标聚合
func (c ConfirmItemReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ConfirmItemReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	if c.Quantity.IsNegative() || c.Commission.IsNegative() {
		return errors.New("amounts must be non-negative")
	}
	return nil
}

// CancelItemReservationCommand 取消持仓预留
type CancelItemReservationCommand struct {
	PortfolioID   string
	TransactionID string
	Quantity      decimal.Decimal
	Commission    decimal.Decimal
}

// CommandType 命令类型
func (c CancelItemReservationCommand) CommandType() string { return "CancelItemReservation" }

// TargetID 目标聚合
func (c CancelItemReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c CancelItemReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	return nil
}

// ClearItemReservationCommand 清理持仓残余预留
type ClearItemReservationCommand struct {
	PortfolioID   string
	TransactionID string
}

// CommandType 命令类型
func (c ClearItemReservationCommand) CommandType() string { return "ClearItemReservation" }

// TargetID 目标聚合
func (c ClearItemReservationCommand) TargetID() string { return c.PortfolioID }

// Validate 同步校验
func (c ClearItemReservationCommand) Validate() error {
	if c.PortfolioID == "" || c.TransactionID == "" {
		return errMissingField
	}
	return nil
}
