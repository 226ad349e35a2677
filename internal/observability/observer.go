// Package observability 把领域事件流转换为业务指标
package observability

import (
	"context"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	obdomain "github.com/wyfcoding/tradecore/internal/orderbook/domain"
	pfdomain "github.com/wyfcoding/tradecore/internal/portfolio/domain"
	"github.com/wyfcoding/tradecore/pkg/metrics"
)

// EventObserver 事件总线订阅者，按事件类型累计业务指标
type EventObserver struct {
	metrics *metrics.Metrics
}

// NewEventObserver 创建指标观察者
func NewEventObserver(m *metrics.Metrics) *EventObserver {
	return &EventObserver{metrics: m}
}

// HandleEvent 实现 eventsourcing.EventHandler
func (o *EventObserver) HandleEvent(_ context.Context, event eventsourcing.DomainEvent) {
	o.metrics.EventsAppendedTotal.WithLabelValues(event.EventType()).Inc()

	switch event.(type) {
	case *obdomain.TradeExecutedEvent:
		o.metrics.TradesExecutedTotal.Inc()
	case *pfdomain.CashReservationRejectedEvent, *pfdomain.ItemReservationRejectedEvent:
		o.metrics.ReservationsRejectedTotal.Inc()
	}
}
