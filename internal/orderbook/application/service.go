// Package application 订单簿命令服务
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/orderbook/domain"
)

// OrderBookService 订单簿应用服务，负责命令到聚合的编排
type OrderBookService struct {
	repo   *eventsourcing.Repository[*domain.OrderBook]
	events *eventsourcing.EventBus
	logger *slog.Logger
}

// NewOrderBookService 创建订单簿应用服务
func NewOrderBookService(store eventsourcing.EventStore, events *eventsourcing.EventBus, logger *slog.Logger) *OrderBookService {
	return &OrderBookService{
		repo:   eventsourcing.NewRepository(store, domain.NewOrderBook),
		events: events,
		logger: logger.With("service", "orderbook"),
	}
}

// RegisterHandlers 在命令总线上注册本上下文的命令处理器
func (s *OrderBookService) RegisterHandlers(bus *eventsourcing.CommandBus) {
	bus.Register(CreateOrderBookCommand{}.CommandType(), s.handleCreate)
	bus.Register(PlaceBuyOrderCommand{}.CommandType(), s.handlePlaceBuy)
	bus.Register(PlaceSellOrderCommand{}.CommandType(), s.handlePlaceSell)
	bus.Register(CancelOrderCommand{}.CommandType(), s.handleCancel)
}

func (s *OrderBookService) handleCreate(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CreateOrderBookCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	exists, err := s.repo.Exists(ctx, c.OrderBookID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("order book already exists, skipping", "order_book_id", c.OrderBookID)
		return nil
	}

	book := domain.NewOrderBook()
	if err := book.Create(c.OrderBookID, c.ItemID, c.Currency); err != nil {
		return err
	}
	return s.commit(ctx, book)
}

func (s *OrderBookService) handlePlaceBuy(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(PlaceBuyOrderCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	book, err := s.repo.Load(ctx, c.OrderBookID)
	if err != nil {
		return err
	}
	if err := book.PlaceBuyOrder(c.OrderID, c.TransactionID, c.PortfolioID, c.Quantity, c.Price); err != nil {
		return err
	}
	return s.commit(ctx, book)
}

func (s *OrderBookService) handlePlaceSell(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(PlaceSellOrderCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	book, err := s.repo.Load(ctx, c.OrderBookID)
	if err != nil {
		return err
	}
	if err := book.PlaceSellOrder(c.OrderID, c.TransactionID, c.PortfolioID, c.Quantity, c.Price); err != nil {
		return err
	}
	return s.commit(ctx, book)
}

func (s *OrderBookService) handleCancel(ctx context.Context, cmd eventsourcing.Command) error {
	c, ok := cmd.(CancelOrderCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	book, err := s.repo.Load(ctx, c.OrderBookID)
	if err != nil {
		return err
	}
	if err := book.CancelOrder(c.OrderID); err != nil {
		// 已成交/已取消订单的取消是正常的空操作
		if errors.Is(err, domain.ErrOrderNotOpen) {
			s.logger.Info("cancel of closed order ignored",
				"order_book_id", c.OrderBookID,
				"order_id", c.OrderID,
			)
			return nil
		}
		return err
	}
	return s.commit(ctx, book)
}

func (s *OrderBookService) commit(ctx context.Context, book *domain.OrderBook) error {
	events, err := s.repo.Save(ctx, book)
	if err != nil {
		return err
	}
	s.events.Publish(ctx, events...)
	return nil
}
