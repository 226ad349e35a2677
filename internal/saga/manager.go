// Package saga 交易结算与费用结算的长流程编排。
// saga 不持有聚合状态，只维护一小段相关性记录，用事件驱动下一条命令；
// 路由采用显式关联索引，不依赖任何反射式的处理器发现
package saga

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	feedomain "github.com/wyfcoding/tradecore/internal/fee/domain"
	obdomain "github.com/wyfcoding/tradecore/internal/orderbook/domain"
	pfdomain "github.com/wyfcoding/tradecore/internal/portfolio/domain"
	txdomain "github.com/wyfcoding/tradecore/internal/transaction/domain"
)

// Saga 流程实例。Handle 处理一条相关事件，Done 表示流程已终结
type Saga interface {
	Handle(ctx context.Context, event eventsourcing.DomainEvent)
	Done() bool
}

// Manager 按相关性标识把事件路由到 saga 实例：
// 在启动事件上创建实例，终结后移除；已终结的相关性标识上的后续事件幂等忽略
type Manager struct {
	mu           sync.Mutex
	instances    map[string]Saga   // 主相关性标识 -> 实例
	associations map[string]string // 关联标识 -> 主相关性标识
	terminated   map[string]struct{}

	commands       *eventsourcing.CommandBus
	logger         *slog.Logger
	onActiveChange func(active int)
}

// NewManager 创建 saga 管理器。onActiveChange 在活跃实例数变化时回调（可为 nil）
func NewManager(commands *eventsourcing.CommandBus, logger *slog.Logger, onActiveChange func(int)) *Manager {
	return &Manager{
		instances:      make(map[string]Saga),
		associations:   make(map[string]string),
		terminated:     make(map[string]struct{}),
		commands:       commands,
		logger:         logger.With("component", "saga_manager"),
		onActiveChange: onActiveChange,
	}
}

// ActiveCount 活跃 saga 实例数
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// HandleEvent 实现 eventsourcing.EventHandler，作为事件总线订阅者接入。
// 全程持锁：不同聚合的信箱可能并发投递同一 saga 的事件，
// 而命令派发是非阻塞的，持锁不会造成死锁
func (m *Manager) HandleEvent(ctx context.Context, event eventsourcing.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := event.(type) {
	case *txdomain.TransactionStartedEvent:
		m.startLocked(e.AggregateID(), []string{e.AggregateID()}, func() Saga {
			return NewTradeManagerSaga(e.AggregateID(), m.dispatch, m.logger)
		})
	case *feedomain.FeeSettlementStartedEvent:
		keys := []string{e.AggregateID(), e.PayableFeeID, e.PaidFeeID, e.OffsetID}
		m.startLocked(e.AggregateID(), keys, func() Saga {
			return NewFeeManagerSaga(e.AggregateID(), m.dispatch, m.logger)
		})
	}

	for _, entry := range m.resolveLocked(event) {
		entry.saga.Handle(ctx, event)
		if entry.saga.Done() {
			m.finishLocked(entry.primary)
		}
	}
}

type target struct {
	primary string
	saga    Saga
}

// startLocked 为启动事件创建实例并登记全部关联标识。重复启动与已终结的标识幂等跳过
func (m *Manager) startLocked(primary string, keys []string, factory func() Saga) {
	if _, done := m.terminated[primary]; done {
		return
	}
	if _, exists := m.instances[primary]; exists {
		return
	}

	saga := factory()
	m.instances[primary] = saga
	for _, key := range keys {
		m.associations[key] = primary
	}
	m.logger.Info("saga started", "correlation_id", primary, "active", len(m.instances))
	if m.onActiveChange != nil {
		m.onActiveChange(len(m.instances))
	}
}

// resolveLocked 找出事件相关的全部 saga 实例（同一事件可能同时驱动买卖双方）
func (m *Manager) resolveLocked(event eventsourcing.DomainEvent) []target {
	var targets []target
	seen := make(map[string]struct{})

	for _, key := range associationKeys(event) {
		primary, ok := m.associations[key]
		if !ok {
			continue
		}
		if _, dup := seen[primary]; dup {
			continue
		}
		seen[primary] = struct{}{}
		if saga, ok := m.instances[primary]; ok {
			targets = append(targets, target{primary: primary, saga: saga})
		}
	}
	return targets
}

func (m *Manager) finishLocked(primary string) {
	if _, ok := m.instances[primary]; !ok {
		return
	}
	delete(m.instances, primary)
	m.terminated[primary] = struct{}{}
	for key, p := range m.associations {
		if p == primary {
			delete(m.associations, key)
		}
	}
	m.logger.Info("saga finished", "correlation_id", primary, "active", len(m.instances))
	if m.onActiveChange != nil {
		m.onActiveChange(len(m.instances))
	}
}

// dispatch 供 saga 派发后续命令。命令失败只记录日志，业务拒绝以事件回流
func (m *Manager) dispatch(ctx context.Context, cmd eventsourcing.Command) {
	if err := m.commands.Dispatch(ctx, cmd); err != nil {
		m.logger.Error("saga command dispatch failed",
			"command_type", cmd.CommandType(),
			"target_id", cmd.TargetID(),
			"error", err,
		)
	}
}

// associationKeys 返回事件携带的全部相关性标识
func associationKeys(event eventsourcing.DomainEvent) []string {
	switch e := event.(type) {
	case *obdomain.TradeExecutedEvent:
		return []string{e.BuyTransactionID, e.SellTransactionID}
	case *pfdomain.CashReservedEvent:
		return []string{e.TransactionID}
	case *pfdomain.CashReservationRejectedEvent:
		return []string{e.TransactionID}
	case *pfdomain.ItemReservedEvent:
		return []string{e.TransactionID}
	case *pfdomain.ItemReservationRejectedEvent:
		return []string{e.TransactionID}
	default:
		// 交易、费用、冲销事件以自身聚合标识关联
		return []string{event.AggregateID()}
	}
}
