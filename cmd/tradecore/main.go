package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/eventsourcing/messaging"
	"github.com/wyfcoding/tradecore/internal/eventsourcing/persistence/mysql"
	feeapp "github.com/wyfcoding/tradecore/internal/fee/application"
	feedomain "github.com/wyfcoding/tradecore/internal/fee/domain"
	"github.com/wyfcoding/tradecore/internal/observability"
	obapp "github.com/wyfcoding/tradecore/internal/orderbook/application"
	obdomain "github.com/wyfcoding/tradecore/internal/orderbook/domain"
	obhttp "github.com/wyfcoding/tradecore/internal/orderbook/interfaces/http"
	pfapp "github.com/wyfcoding/tradecore/internal/portfolio/application"
	pfdomain "github.com/wyfcoding/tradecore/internal/portfolio/domain"
	pfhttp "github.com/wyfcoding/tradecore/internal/portfolio/interfaces/http"
	"github.com/wyfcoding/tradecore/internal/saga"
	txapp "github.com/wyfcoding/tradecore/internal/transaction/application"
	txdomain "github.com/wyfcoding/tradecore/internal/transaction/domain"
	txhttp "github.com/wyfcoding/tradecore/internal/transaction/interfaces/http"
	"github.com/wyfcoding/tradecore/pkg/config"
	"github.com/wyfcoding/tradecore/pkg/db"
	"github.com/wyfcoding/tradecore/pkg/logger"
	"github.com/wyfcoding/tradecore/pkg/metrics"
	"github.com/wyfcoding/tradecore/pkg/mq"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/tradecore/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()

	// 3. Metrics
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			panic(fmt.Sprintf("register metrics failed: %v", err))
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			panic(fmt.Sprintf("start metrics server failed: %v", err))
		}
	}

	// 4. Event registry
	registry := eventsourcing.NewRegistry()
	registry.Register(obdomain.Events()...)
	registry.Register(pfdomain.Events()...)
	registry.Register(txdomain.Events()...)
	registry.Register(feedomain.Events()...)

	// 5. Event store：配置了 DSN 用 MySQL，否则退化为内存存储
	var store eventsourcing.EventStore
	if cfg.Database.DSN != "" {
		database, err := db.Init(db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		})
		if err != nil {
			panic(fmt.Sprintf("connect db failed: %v", err))
		}
		defer database.Close()

		es := mysql.NewEventStore(database.DB, registry)
		if err := es.Migrate(); err != nil {
			panic(fmt.Sprintf("migrate event store failed: %v", err))
		}
		store = es
	} else {
		log.Warn("no database DSN configured, using in-memory event store")
		store = eventsourcing.NewMemoryEventStore()
	}

	// 6. Buses
	events := eventsourcing.NewEventBus()
	commands := eventsourcing.NewCommandBus(log)
	defer commands.Close()
	commands.Observe(func(commandType string, elapsed time.Duration) {
		m.CommandsTotal.WithLabelValues(commandType).Inc()
		m.CommandDuration.Observe(elapsed.Seconds())
	})

	// 7. Application services
	obapp.NewOrderBookService(store, events, log).RegisterHandlers(commands)
	pfapp.NewPortfolioService(store, events, log).RegisterHandlers(commands)
	txapp.NewTransactionService(store, events, log).RegisterHandlers(commands)
	feeapp.NewFeeService(store, events, log).RegisterHandlers(commands)

	// 8. Saga orchestration
	manager := saga.NewManager(commands, log, func(active int) {
		m.ActiveSagas.Set(float64(active))
	})
	events.Subscribe(manager.HandleEvent)

	// 9. Observability & messaging：事件外发中继 + 外部命令消费
	events.Subscribe(observability.NewEventObserver(m).HandleEvent)
	var cmdConsumer *messaging.CommandConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
			MaxRetries:     cfg.Kafka.MaxRetries,
			RetryBackoff:   cfg.Kafka.RetryBackoff,
		}
		producer, err := mq.NewProducer(kafkaCfg)
		if err != nil {
			panic(fmt.Sprintf("create kafka producer failed: %v", err))
		}
		defer producer.Close()

		relay := messaging.NewEventRelay(producer, map[string]string{
			"TradeExecuted": "tradecore.trades",
		}, "tradecore.events", log)
		events.Subscribe(relay.Handle)

		if cfg.Kafka.CommandTopic != "" {
			consumer, err := mq.NewConsumer(kafkaCfg, cfg.Kafka.CommandTopic)
			if err != nil {
				panic(fmt.Sprintf("create kafka consumer failed: %v", err))
			}
			defer consumer.Close()

			cmdConsumer = messaging.NewCommandConsumer(consumer, commands, log)
			cmdConsumer.RegisterCommand("CreatePortfolio", messaging.DecodeAs[pfapp.CreatePortfolioCommand])
			cmdConsumer.RegisterCommand("DepositCash", messaging.DecodeAs[pfapp.DepositCashCommand])
			cmdConsumer.RegisterCommand("WithdrawCash", messaging.DecodeAs[pfapp.WithdrawCashCommand])
			cmdConsumer.RegisterCommand("AddItems", messaging.DecodeAs[pfapp.AddItemsCommand])
			cmdConsumer.RegisterCommand("CreateOrderBook", messaging.DecodeAs[obapp.CreateOrderBookCommand])
			cmdConsumer.RegisterCommand("CancelOrder", messaging.DecodeAs[obapp.CancelOrderCommand])
			cmdConsumer.RegisterCommand("StartTransaction", messaging.DecodeAs[txapp.StartTransactionCommand])
			cmdConsumer.RegisterCommand("CancelTransaction", messaging.DecodeAs[txapp.CancelTransactionCommand])
		}
	}

	// 10. HTTP interface
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.HTTPRequestsTotal.Inc()
		m.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	})
	api := r.Group("/api/v1")
	obhttp.NewHandler(commands, store).RegisterRoutes(api)
	pfhttp.NewHandler(commands, store).RegisterRoutes(api)
	txhttp.NewHandler(commands, store).RegisterRoutes(api)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 11. Run & graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpSrv.Addr, "service", cfg.ServiceName)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if cmdConsumer != nil {
		g.Go(func() error {
			log.Info("starting command consumer", "topic", cfg.Kafka.CommandTopic)
			return cmdConsumer.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		commands.Drain()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return
	}
	log.Info("server exiting")
}
