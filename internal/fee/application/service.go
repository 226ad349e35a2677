// Package application 费用与冲销命令服务
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/fee/domain"
)

// FeeService 费用应用服务，编排费用、冲销与费用结算三个聚合
type FeeService struct {
	settlements *eventsourcing.Repository[*domain.FeeSettlement]
	fees        *eventsourcing.Repository[*domain.Fee]
	offsets     *eventsourcing.Repository[*domain.Offset]
	events      *eventsourcing.EventBus
	logger      *slog.Logger
}

// NewFeeService 创建费用应用服务
func NewFeeService(store eventsourcing.EventStore, events *eventsourcing.EventBus, logger *slog.Logger) *FeeService {
	return &FeeService{
		settlements: eventsourcing.NewRepository(store, domain.NewFeeSettlement),
		fees:        eventsourcing.NewRepository(store, domain.NewFee),
		offsets:     eventsourcing.NewRepository(store, domain.NewOffset),
		events:      events,
		logger:      logger.With("service", "fee"),
	}
}

// RegisterHandlers 在命令总线上注册本上下文的命令处理器
func (s *FeeService) RegisterHandlers(bus *eventsourcing.CommandBus) {
	bus.Register(StartFeeSettlementCommand{}.CommandType(), s.handleStartSettlement)
	bus.Register(CreateFeeCommand{}.CommandType(), s.handleCreateFee)
	bus.Register(ConfirmFeeCommand{}.CommandType(), s.handleConfirmFee)
	bus.Register(CancelFeeCommand{}.CommandType(), s.handleCancelFee)
	bus.Register(MarkFeeOffsetedCommand{}.CommandType(), s.handleMarkFeeOffseted)
	bus.Register(CreateOffsetCommand{}.CommandType(), s.handleCreateOffset)
	bus.Register(OffsetFeesCommand{}.CommandType(), s.handleOffsetFees)
	bus.Register(CancelOffsetCommand{}.CommandType(), s.handleCancelOffset)
}

func (s *FeeService) handleStartSettlement(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(StartFeeSettlementCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.settlements.Exists(ctx, c.FeeTransactionID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("fee settlement already started, skipping", "fee_transaction_id", c.FeeTransactionID)
		return nil
	}

	settlement := domain.NewFeeSettlement()
	if err := settlement.Start(c.FeeTransactionID, c.TradeTransactionID, c.Amount, c.PayableFeeID, c.PaidFeeID, c.OffsetID, c.DueDate); err != nil {
		return err
	}
	events, err := s.settlements.Save(ctx, settlement)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}

func (s *FeeService) handleCreateFee(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CreateFeeCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.fees.Exists(ctx, c.FeeID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("fee already created, skipping", "fee_id", c.FeeID)
		return nil
	}

	fee := domain.NewFee()
	if err := fee.Create(c.FeeID, c.Role, c.Amount, c.DueDate, c.BusinessReference); err != nil {
		return err
	}
	return s.commitFee(ctx, fee)
}

func (s *FeeService) handleConfirmFee(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(ConfirmFeeCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	fee, err := s.fees.Load(ctx, c.FeeID)
	if err != nil {
		return err
	}
	if err := fee.Confirm(ctx); err != nil {
		return err
	}
	return s.commitFee(ctx, fee)
}

func (s *FeeService) handleCancelFee(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CancelFeeCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	fee, err := s.fees.Load(ctx, c.FeeID)
	if err != nil {
		return err
	}
	if err := fee.Cancel(ctx, c.Reason); err != nil {
		return err
	}
	return s.commitFee(ctx, fee)
}

func (s *FeeService) handleMarkFeeOffseted(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(MarkFeeOffsetedCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	fee, err := s.fees.Load(ctx, c.FeeID)
	if err != nil {
		return err
	}
	if err := fee.MarkOffseted(ctx, c.OffsetID); err != nil {
		return err
	}
	return s.commitFee(ctx, fee)
}

func (s *FeeService) handleCreateOffset(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CreateOffsetCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.offsets.Exists(ctx, c.OffsetID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("offset already created, skipping", "offset_id", c.OffsetID)
		return nil
	}

	offset := domain.NewOffset()
	if err := offset.Create(c.OffsetID, c.BusinessReference, c.DebitItems, c.CreditItems, c.Amount); err != nil {
		return err
	}
	return s.commitOffset(ctx, offset)
}

func (s *FeeService) handleOffsetFees(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(OffsetFeesCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	offset, err := s.offsets.Load(ctx, c.OffsetID)
	if err != nil {
		return err
	}
	if err := offset.OffsetFees(ctx); err != nil {
		return err
	}
	return s.commitOffset(ctx, offset)
}

func (s *FeeService) handleCancelOffset(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CancelOffsetCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	offset, err := s.offsets.Load(ctx, c.OffsetID)
	if err != nil {
		return err
	}
	if err := offset.Cancel(ctx); err != nil {
		return err
	}
	return s.commitOffset(ctx, offset)
}

func (s *FeeService) commitFee(ctx context.Context, fee *domain.Fee) error {
	events, err := s.fees.Save(ctx, fee)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}

func (s *FeeService) commitOffset(ctx context.Context, offset *domain.Offset) error {
	events, err := s.offsets.Save(ctx, offset)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}
