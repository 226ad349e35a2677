package application

import (
	"errors"
	"time"

	"github.com/wyfcoding/tradecore/internal/fee/domain"
	"github.com/wyfcoding/tradecore/internal/money"
)

var errMissingField = errors.New("missing required field")

// StartFeeSettlementCommand 启动一次成交的佣金结算
type StartFeeSettlementCommand struct {
	FeeTransactionID   string
	TradeTransactionID string
	Amount             money.Money
	PayableFeeID       string
	PaidFeeID          string
	OffsetID           string
	DueDate            time.Time
}

// CommandType 命令类型
func (c StartFeeSettlementCommand) CommandType() string { return "StartFeeSettlement" }

// TargetID 目标聚合
func (c StartFeeSettlementCommand) TargetID() string { return c.FeeTransactionID }

// Validate 同步校验
func (c StartFeeSettlementCommand) Validate() error {
	if c.FeeTransactionID == "" || c.TradeTransactionID == "" ||
		c.PayableFeeID == "" || c.PaidFeeID == "" || c.OffsetID == "" {
		return errMissingField
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// CreateFeeCommand 创建费用
type CreateFeeCommand struct {
	FeeID             string
	Role              domain.FeeRole
	Amount            money.Money
	DueDate           time.Time
	BusinessReference string
}

// CommandType 命令类型
func (c CreateFeeCommand) CommandType() string { return "CreateFee" }

// TargetID 目标聚合
func (c CreateFeeCommand) TargetID() string { return c.FeeID }

// Validate 同步校验
func (c CreateFeeCommand) Validate() error {
	if c.FeeID == "" || c.BusinessReference == "" {
		return errMissingField
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// ConfirmFeeCommand 确认费用
type ConfirmFeeCommand struct {
	FeeID string
}

// CommandType 命令类型
func (c ConfirmFeeCommand) CommandType() string { return "ConfirmFee" }

// TargetID 目标聚合
func (c ConfirmFeeCommand) TargetID() string { return c.FeeID }

// Validate 同步校验
func (c ConfirmFeeCommand) Validate() error {
	if c.FeeID == "" {
		return errMissingField
	}
	return nil
}

// CancelFeeCommand 取消费用
type CancelFeeCommand struct {
	FeeID  string
	Reason domain.CancelReason
}

// CommandType 命令类型
func (c CancelFeeCommand) CommandType() string { return "CancelFee" }

// TargetID 目标聚合
func (c CancelFeeCommand) TargetID() string { return c.FeeID }

// Validate 同步校验
func (c CancelFeeCommand) Validate() error {
	if c.FeeID == "" {
		return errMissingField
	}
	return nil
}

// MarkFeeOffsetedCommand 费用侧确认冲销完成
type MarkFeeOffsetedCommand struct {
	FeeID    string
	OffsetID string
}

// CommandType 命令类型
func (c MarkFeeOffsetedCommand) CommandType() string { return "MarkFeeOffseted" }

// TargetID 目标聚合
func (c MarkFeeOffsetedCommand) TargetID() string { return c.FeeID }

// Validate 同步校验
func (c MarkFeeOffsetedCommand) Validate() error {
	if c.FeeID == "" || c.OffsetID == "" {
		return errMissingField
	}
	return nil
}

// CreateOffsetCommand 创建冲销
type CreateOffsetCommand struct {
	OffsetID          string
	BusinessReference string
	DebitItems        []domain.FeeItem
	CreditItems       []domain.FeeItem
	Amount            money.Money
}

// CommandType 命令类型
func (c CreateOffsetCommand) CommandType() string { return "CreateOffset" }

// TargetID 目标聚合
func (c CreateOffsetCommand) TargetID() string { return c.OffsetID }

// Validate 同步校验
func (c CreateOffsetCommand) Validate() error {
	if c.OffsetID == "" {
		return errMissingField
	}
	if len(c.DebitItems) == 0 || len(c.CreditItems) == 0 {
		return errors.New("both offset sides require at least one item")
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// OffsetFeesCommand 执行冲销
type OffsetFeesCommand struct {
	OffsetID string
}

// CommandType 命令类型
func (c OffsetFeesCommand) CommandType() string { return "OffsetFees" }

// TargetID 目标聚合
func (c OffsetFeesCommand) TargetID() string { return c.OffsetID }

// Validate 同步校验
func (c OffsetFeesCommand) Validate() error {
	if c.OffsetID == "" {
		return errMissingField
	}
	return nil
}

// CancelOffsetCommand 取消冲销
type CancelOffsetCommand struct {
	OffsetID string
}

// CommandType 命令类型
func (c CancelOffsetCommand) CommandType() string { return "CancelOffset" }

// TargetID 目标聚合
func (c CancelOffsetCommand) TargetID() string { return c.OffsetID }

// Validate 同步校验
func (c CancelOffsetCommand) Validate() error {
	if c.OffsetID == "" {
		return errMissingField
	}
	return nil
}
