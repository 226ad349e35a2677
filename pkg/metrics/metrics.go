// Package metrics 提供 Prometheus helper，包含交易结算核心的业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/tradecore/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 命令处理计数（按命令类型）
	CommandsTotal *prometheus.CounterVec
	// 命令处理耗时
	CommandDuration prometheus.Histogram

	// 事件追加计数（按事件类型）
	EventsAppendedTotal *prometheus.CounterVec

	// 业务指标
	TradesExecutedTotal       prometheus.Counter
	ReservationsRejectedTotal prometheus.Counter
	ActiveSagas               prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "commands_total",
			Help:      "Total commands dispatched",
		}, []string{"command_type"}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		EventsAppendedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "events_appended_total",
			Help:      "Total domain events appended to the event store",
		}, []string{"event_type"}),

		TradesExecutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "trades_executed_total",
			Help:      "Total trades executed by the order books",
		}),
		ReservationsRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "reservations_rejected_total",
			Help:      "Total portfolio reservations rejected",
		}),
		ActiveSagas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradecore",
			Subsystem: serviceName,
			Name:      "active_sagas",
			Help:      "Number of active settlement sagas",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CommandsTotal,
		m.CommandDuration,
		m.EventsAppendedTotal,
		m.TradesExecutedTotal,
		m.ReservationsRejectedTotal,
		m.ActiveSagas,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
