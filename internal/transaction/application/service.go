// Package application 交易命令服务
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/transaction/domain"
)

// TransactionService 交易应用服务
type TransactionService struct {
	repo   *eventsourcing.Repository[*domain.Transaction]
	events *eventsourcing.EventBus
	logger *slog.Logger
}

// NewTransactionService 创建交易应用服务
func NewTransactionService(store eventsourcing.EventStore, events *eventsourcing.EventBus, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		repo:   eventsourcing.NewRepository(store, domain.NewTransaction),
		events: events,
		logger: logger.With("service", "transaction"),
	}
}

// RegisterHandlers 在命令总线上注册本上下文的命令处理器
func (s *TransactionService) RegisterHandlers(bus *eventsourcing.CommandBus) {
	bus.Register(StartTransactionCommand{}.CommandType(), s.handleStart)
	bus.Register(ConfirmTransactionCommand{}.CommandType(), s.handleConfirm)
	bus.Register(ExecuteTransactionCommand{}.CommandType(), s.handleExecute)
	bus.Register(CancelTransactionCommand{}.CommandType(), s.handleCancel)
}

func (s *TransactionService) handleStart(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(StartTransactionCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.repo.Exists(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("transaction already started, skipping", "transaction_id", c.TransactionID)
		return nil
	}

	t := domain.NewTransaction()
	if err := t.Start(c.TransactionID, c.TradeType, c.OrderBookID, c.PortfolioID, c.ItemID, c.Quantity, c.PricePerItem, c.Commission); err != nil {
		return err
	}
	return s.commit(ctx, t)
}

func (s *TransactionService) handleConfirm(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(ConfirmTransactionCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	t, err := s.repo.Load(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if err := t.Confirm(ctx); err != nil {
		return err
	}
	return s.commit(ctx, t)
}

func (s *TransactionService) handleExecute(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(ExecuteTransactionCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	t, err := s.repo.Load(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if err := t.Execute(ctx, c.Quantity, c.Price); err != nil {
		return err
	}
	return s.commit(ctx, t)
}

func (s *TransactionService) handleCancel(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CancelTransactionCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	t, err := s.repo.Load(ctx, c.TransactionID)
	if err != nil {
		return err
	}
	if err := t.Cancel(ctx); err != nil {
		return err
	}
	return s.commit(ctx, t)
}

func (s *TransactionService) commit(ctx context.Context, t *domain.Transaction) error {
	events, err := s.repo.Save(ctx, t)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}
