package saga

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	feeapp "github.com/wyfcoding/tradecore/internal/fee/application"
	feedomain "github.com/wyfcoding/tradecore/internal/fee/domain"
	"github.com/wyfcoding/tradecore/internal/money"
)

// feeLeg 费用结算中一条腿的进度
type feeLeg struct {
	feeID     string
	role      feedomain.FeeRole
	amount    money.Money
	confirmed bool
	offseted  bool
	cancelled bool
}

// FeeManagerSaga 单笔佣金结算编排。
// 创建应付/已付两条费用 -> 分别确认 -> 建冲销配平 -> 两侧标记冲销完成；
// 金额不平时取消冲销并以 OFFSET_ERROR 取消两条费用作为补偿
type FeeManagerSaga struct {
	feeTransactionID   string
	tradeTransactionID string
	amount             money.Money
	offsetID           string
	dueDate            time.Time
	done               bool

	payable feeLeg
	paid    feeLeg

	dispatch DispatchFunc
	logger   *slog.Logger
}

// NewFeeManagerSaga 创建费用编排实例
func NewFeeManagerSaga(feeTransactionID string, dispatch DispatchFunc, logger *slog.Logger) *FeeManagerSaga {
	return &FeeManagerSaga{
		feeTransactionID: feeTransactionID,
		dispatch:         dispatch,
		logger:           logger.With("saga", "fee_manager", "fee_transaction_id", feeTransactionID),
	}
}

// Done 流程是否已终结
func (s *FeeManagerSaga) Done() bool { return s.done }

// Handle 处理一条相关事件并派发下一步命令
func (s *FeeManagerSaga) Handle(ctx context.Context, event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *feedomain.FeeSettlementStartedEvent:
		s.onStarted(ctx, e)
	case *feedomain.FeeCreatedEvent:
		s.dispatch(ctx, feeapp.ConfirmFeeCommand{FeeID: e.AggregateID()})
	case *feedomain.FeeConfirmedEvent:
		s.onFeeConfirmed(ctx, e)
	case *feedomain.OffsetCreatedEvent:
		s.dispatch(ctx, feeapp.OffsetFeesCommand{OffsetID: s.offsetID})
	case *feedomain.FeesOffsetedEvent:
		s.onFeesOffseted(ctx)
	case *feedomain.FeeOffsetedEvent:
		s.onFeeOffseted(e)
	case *feedomain.OffsetAmountNotMatchedEvent:
		s.onAmountNotMatched(ctx, e)
	case *feedomain.OffsetCancelledEvent:
		s.onOffsetCancelled(ctx)
	case *feedomain.FeeCancelledEvent:
		s.onFeeCancelled(e)
	}
}

func (s *FeeManagerSaga) onStarted(ctx context.Context, e *feedomain.FeeSettlementStartedEvent) {
	s.tradeTransactionID = e.TradeTransactionID
	s.amount = e.Amount
	s.offsetID = e.OffsetID
	s.dueDate = e.DueDate
	s.payable = feeLeg{feeID: e.PayableFeeID, role: feedomain.RolePayable}
	s.paid = feeLeg{feeID: e.PaidFeeID, role: feedomain.RolePaid}

	for _, leg := range []feeLeg{s.payable, s.paid} {
		s.dispatch(ctx, feeapp.CreateFeeCommand{
			FeeID:             leg.feeID,
			Role:              leg.role,
			Amount:            s.amount,
			DueDate:           s.dueDate,
			BusinessReference: s.tradeTransactionID,
		})
	}
}

// onFeeConfirmed 两条腿都确认后建冲销，借方为应付、贷方为已付，
// 分录金额取确认事件的实际金额，由冲销聚合校验是否配平
func (s *FeeManagerSaga) onFeeConfirmed(ctx context.Context, e *feedomain.FeeConfirmedEvent) {
	leg := s.leg(e.AggregateID())
	if leg == nil || leg.confirmed {
		return
	}
	leg.confirmed = true
	leg.amount = e.Amount

	if !s.payable.confirmed || !s.paid.confirmed {
		return
	}
	s.dispatch(ctx, feeapp.CreateOffsetCommand{
		OffsetID:          s.offsetID,
		BusinessReference: s.feeTransactionID,
		DebitItems:        []feedomain.FeeItem{{FeeID: s.payable.feeID, Amount: s.payable.amount}},
		CreditItems:       []feedomain.FeeItem{{FeeID: s.paid.feeID, Amount: s.paid.amount}},
		Amount:            s.amount,
	})
}

func (s *FeeManagerSaga) onFeesOffseted(ctx context.Context) {
	for _, leg := range []feeLeg{s.payable, s.paid} {
		s.dispatch(ctx, feeapp.MarkFeeOffsetedCommand{FeeID: leg.feeID, OffsetID: s.offsetID})
	}
}

func (s *FeeManagerSaga) onFeeOffseted(e *feedomain.FeeOffsetedEvent) {
	leg := s.leg(e.AggregateID())
	if leg == nil {
		return
	}
	leg.offseted = true

	if s.payable.offseted && s.paid.offseted {
		s.done = true
		s.logger.Info("fee settlement completed", "amount", s.amount.String())
	}
}

func (s *FeeManagerSaga) onAmountNotMatched(ctx context.Context, e *feedomain.OffsetAmountNotMatchedEvent) {
	s.logger.Warn("offset amount not matched, compensating",
		"expected", e.Expected.String(),
		"debit_total", e.DebitTotal.String(),
		"credit_total", e.CreditTotal.String(),
	)
	s.dispatch(ctx, feeapp.CancelOffsetCommand{OffsetID: s.offsetID})
}

func (s *FeeManagerSaga) onOffsetCancelled(ctx context.Context) {
	for _, leg := range []feeLeg{s.payable, s.paid} {
		s.dispatch(ctx, feeapp.CancelFeeCommand{
			FeeID:  leg.feeID,
			Reason: feedomain.ReasonOffsetError,
		})
	}
}

func (s *FeeManagerSaga) onFeeCancelled(e *feedomain.FeeCancelledEvent) {
	leg := s.leg(e.AggregateID())
	if leg == nil {
		return
	}
	leg.cancelled = true

	if s.payable.cancelled && s.paid.cancelled {
		s.done = true
		s.logger.Info("fee settlement aborted")
	}
}

func (s *FeeManagerSaga) leg(feeID string) *feeLeg {
	switch feeID {
	case s.payable.feeID:
		return &s.payable
	case s.paid.feeID:
		return &s.paid
	}
	return nil
}
