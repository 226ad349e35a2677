// Package application 组合命令服务
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/portfolio/domain"
)

// PortfolioService 组合应用服务
type PortfolioService struct {
	repo   *eventsourcing.Repository[*domain.Portfolio]
	events *eventsourcing.EventBus
	logger *slog.Logger
}

// NewPortfolioService 创建组合应用服务
func NewPortfolioService(store eventsourcing.EventStore, events *eventsourcing.EventBus, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		repo:   eventsourcing.NewRepository(store, domain.NewPortfolio),
		events: events,
		logger: logger.With("service", "portfolio"),
	}
}

// RegisterHandlers 在命令总线上注册本上下文的命令处理器
func (s *PortfolioService) RegisterHandlers(bus *eventsourcing.CommandBus) {
	bus.Register(CreatePortfolioCommand{}.CommandType(), s.handleCreate)
	bus.Register(DepositCashCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(DepositCashCommand)
		return p.Deposit(c.Amount)
	}))
	bus.Register(WithdrawCashCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(WithdrawCashCommand)
		return p.Withdraw(c.Amount)
	}))
	bus.Register(AddItemsCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(AddItemsCommand)
		return p.AddItems(c.ItemID, c.Quantity)
	}))
	bus.Register(ReserveCashCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ReserveCashCommand)
		return p.ReserveCash(c.TransactionID, c.Amount, c.Commission)
	}))
	bus.Register(ConfirmCashReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ConfirmCashReservationCommand)
		return p.ConfirmCashReservation(c.TransactionID, c.Amount, c.Commission)
	}))
	bus.Register(CancelCashReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(CancelCashReservationCommand)
		return p.CancelCashReservation(c.TransactionID, c.Amount, c.Commission)
	}))
	bus.Register(ClearCashReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ClearCashReservationCommand)
		return p.ClearCashReservation(c.TransactionID)
	}))
	bus.Register(ReserveItemsCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ReserveItemsCommand)
		return p.ReserveItems(c.TransactionID, c.ItemID, c.Quantity, c.Commission)
	}))
	bus.Register(ConfirmItemReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ConfirmItemReservationCommand)
		return p.ConfirmItemReservation(c.TransactionID, c.Quantity, c.Commission)
	}))
	bus.Register(CancelItemReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(CancelItemReservationCommand)
		return p.CancelItemReservation(c.TransactionID, c.Quantity, c.Commission)
	}))
	bus.Register(ClearItemReservationCommand{}.CommandType(), s.withPortfolio(func(p *domain.Portfolio, cmd eventsourcing.Command) error {
		c := cmd.(ClearItemReservationCommand)
		return p.ClearItemReservation(c.TransactionID)
	}))
}

func (s *PortfolioService) handleCreate(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CreatePortfolioCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.repo.Exists(ctx, c.PortfolioID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("portfolio already exists, skipping", "portfolio_id", c.PortfolioID)
		return nil
	}

	p := domain.NewPortfolio()
	if err := p.Create(c.PortfolioID, c.UserID, c.Currency); err != nil {
		return err
	}
	return s.commit(ctx, p)
}

// withPortfolio 加载聚合、执行领域操作、提交并发布事件的通用编排
func (s *PortfolioService) withPortfolio(op func(*domain.Portfolio, eventsourcing.Command) error) eventsourcing.CommandHandler {
	return func(ctx context.Context, cmd eventsourcing.Command) error {
		p, err := s.repo.Load(ctx, cmd.TargetID())
		if err != nil {
			return err
		}
		if err := op(p, cmd); err != nil {
			return err
		}
		return s.commit(ctx, p)
	}
}

func (s *PortfolioService) commit(ctx context.Context, p *domain.Portfolio) error {
	events, err := s.repo.Save(ctx, p)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}
