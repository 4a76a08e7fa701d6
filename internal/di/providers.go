package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	drepo "QuantCore/internal/domain/repository"
	"QuantCore/internal/handler/api"
	"QuantCore/internal/history"
	mid "QuantCore/internal/middleware"
	internalrepo "QuantCore/internal/repository"
	"QuantCore/internal/service/feed"
	"QuantCore/internal/services/pairs"
	"QuantCore/internal/services/portfolio"
	"QuantCore/internal/services/risk"
	"QuantCore/internal/services/signal"
	"QuantCore/internal/usecase"
	"QuantCore/pkg/cache"
	pkgch "QuantCore/pkg/clickhouse"
	"QuantCore/pkg/config"
	xhttp "QuantCore/pkg/http"
	pkgkafka "QuantCore/pkg/kafka"
	"QuantCore/pkg/logger"
	"QuantCore/pkg/metrics"
	"QuantCore/pkg/queue"
	"QuantCore/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideHistoryStore creates the bounded in-memory price history.
func ProvideHistoryStore(cfg *config.Config, log *logger.Logger) *history.Store {
	return history.NewStore(cfg.History.Capacity, log)
}

// ProvidePairTracker creates the relationship detector.
func ProvidePairTracker(cfg *config.Config, log *logger.Logger, m drepo.Metrics) *pairs.Tracker {
	return pairs.NewTracker(pairs.Config{
		Mode:                 cfg.Pairs.Mode,
		PValueThreshold:      cfg.Pairs.PValueThreshold,
		CorrelationThreshold: cfg.Pairs.CorrelationThreshold,
		CorrelationWindow:    cfg.Pairs.CorrelationWindow,
		MinObservations:      cfg.Pairs.MinObservations,
		MaxStrikes:           cfg.Pairs.MaxStrikes,
		ADFLags:              1,
	}, log, m)
}

// ProvideRiskEngine creates the risk engine.
func ProvideRiskEngine(cfg *config.Config, log *logger.Logger) *risk.Engine {
	return risk.NewEngine(risk.Config{
		InitialEquity:        cfg.Risk.InitialEquity,
		CVaRConfidence:       cfg.Risk.CVaRConfidence,
		ATRPeriod:            cfg.Risk.ATRPeriod,
		ATRMultiplier:        cfg.Risk.ATRMultiplier,
		MaxPositionFraction:  cfg.Risk.MaxPositionFraction,
		MaxDailyLossFraction: cfg.Risk.MaxDailyLossFraction,
		MaxDrawdownFraction:  cfg.Risk.MaxDrawdownFraction,
		SectorExposureLimit:  cfg.Risk.SectorExposureLimit,
		SingleWeightLimit:    cfg.Risk.SingleWeightLimit,
		HedgeRatioCap:        cfg.Risk.HedgeRatioCap,
		Sectors:              cfg.Risk.Sectors,
		HedgeInstruments:     cfg.Risk.HedgeInstruments,
	}, log)
}

// ProvideOptimizer creates the portfolio optimizer.
func ProvideOptimizer(cfg *config.Config, log *logger.Logger) *portfolio.Optimizer {
	return portfolio.New(portfolio.Config{
		Objective:         cfg.Optimizer.Objective,
		RiskFreeRate:      cfg.Optimizer.RiskFreeRate,
		FrontierPoints:    cfg.Optimizer.FrontierPoints,
		TaxRate:           cfg.Optimizer.TaxRate,
		HoldingPeriodDays: cfg.Optimizer.HoldingPeriodDays,
		MinObservations:   cfg.Optimizer.MinObservations,
	}, log)
}

// ProvideClickHouseClient creates a ClickHouse client and applies the tick
// schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.TickSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTickStore creates ClickHouse tick persistence; nil client disables it.
func ProvideTickStore(client *pkgch.Client) drepo.TickStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseTickStore(client.DB(), "md_ticks")
}

// ProvideSignalPublisher creates the Kafka signal publisher, or a no-op when
// no brokers are configured.
func ProvideSignalPublisher(cfg *config.Config) (drepo.SignalPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return internalrepo.NopSignalPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic), nil
}

// ProvideSignalPipeline wraps the publisher with validation, throttling, and
// retry buffering.
func ProvideSignalPipeline(pub drepo.SignalPublisher, m drepo.Metrics) *mid.SignalPipeline {
	return mid.NewSignalPipeline(pub, m,
		mid.WithMaxRate(5, 10),
		mid.WithBufferSize(2000),
	)
}

// ProvideStrategyManager creates the manager and registers the strategies
// enabled in configuration. Enabled strategies start active.
func ProvideStrategyManager(
	cfg *config.Config,
	engine *risk.Engine,
	pipeline *mid.SignalPipeline,
	m drepo.Metrics,
	log *logger.Logger,
	store *history.Store,
) (*usecase.StrategyManager, error) {
	manager := usecase.NewStrategyManager(engine, pipeline, m, log)

	var enabled []signal.Strategy
	if cfg.Strategies.StatArb.Enabled {
		enabled = append(enabled, signal.NewStatArb(store, signal.SpreadConfig{
			ZThreshold:   cfg.Strategies.StatArb.ZThreshold,
			BaseQuantity: cfg.Strategies.StatArb.BaseQuantity,
		}))
	}
	if cfg.Strategies.PairsTrading.Enabled {
		enabled = append(enabled, signal.NewPairsTrading(store, signal.SpreadConfig{
			ZThreshold:   cfg.Strategies.PairsTrading.ZThreshold,
			BaseQuantity: cfg.Strategies.PairsTrading.BaseQuantity,
		}))
	}
	if cfg.Strategies.Scalper.Enabled {
		enabled = append(enabled, signal.NewScalper(signal.ScalperConfig{
			MomentumThreshold: cfg.Strategies.Scalper.MomentumThreshold,
			MaxQuoteAge:       cfg.Strategies.Scalper.MaxQuoteAge,
			MaxSpreadFraction: cfg.Strategies.Scalper.MaxSpreadFraction,
			BaseQuantity:      cfg.Strategies.Scalper.BaseQuantity,
			Symbols:           cfg.Feed.Symbols,
		}))
	}
	if cfg.Strategies.MarketMaker.Enabled {
		enabled = append(enabled, signal.NewMarketMaker(store, signal.MarketMakerConfig{
			Window:           cfg.Strategies.MarketMaker.Window,
			SpreadMultiplier: cfg.Strategies.MarketMaker.SpreadMultiplier,
			InventoryLimit:   cfg.Strategies.MarketMaker.InventoryLimit,
			BaseQuantity:     cfg.Strategies.MarketMaker.BaseQuantity,
			Symbols:          cfg.Feed.Symbols,
		}))
	}

	for _, s := range enabled {
		if err := manager.Register(s); err != nil {
			return nil, err
		}
		if err := manager.Start(s.Name()); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// ProvideMarketStream selects the feed backend.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) drepo.MarketStream {
	if cfg.Feed.Backend == "kafka" {
		return feed.NewKafkaStream(
			cfg.Kafka.Brokers,
			cfg.Kafka.TickTopic,
			cfg.Kafka.GroupID,
			cfg.Kafka.Workers,
			cfg.Kafka.BufferSize,
			log,
		)
	}
	return feed.NewWSClient(
		cfg.Feed.URL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		log,
	)
}

// ProvideTickCollector wires the observation pipeline.
func ProvideTickCollector(
	cfg *config.Config,
	stream drepo.MarketStream,
	store *history.Store,
	tracker *pairs.Tracker,
	manager *usecase.StrategyManager,
	ticks drepo.TickStore,
	m drepo.Metrics,
	log *logger.Logger,
) *usecase.TickCollector {
	return usecase.NewTickCollector(usecase.CollectorConfig{
		MaxLatency:       cfg.Feed.MaxLatency,
		MomentumLookback: cfg.Feed.MomentumLookback,
		VolatilityWindow: cfg.Feed.VolatilityWindow,
		RescanEvery:      cfg.Pairs.RescanEvery,
		RescanTimeout:    cfg.Pairs.RescanTimeout,
		BatchSize:        cfg.ClickHouse.BatchSize,
		BatchTimeout:     cfg.ClickHouse.BatchTimeout,
	}, stream, store, tracker, manager, ticks, m, log)
}

// ProvideRebalancer creates the scheduled rebalancer.
func ProvideRebalancer(
	cfg *config.Config,
	store *history.Store,
	opt *portfolio.Optimizer,
	engine *risk.Engine,
	manager *usecase.StrategyManager,
	m drepo.Metrics,
	log *logger.Logger,
) *usecase.Rebalancer {
	return usecase.NewRebalancer(cfg.Optimizer.RebalanceInterval, store, opt, engine, manager, m, log)
}

/// ProvideCache creates the snapshot cache: layered over Redis when enabled,
// in-process otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.RedisEnabled {
		return cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.Cache.TTL)), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.RedisAddr),
		cache.WithRedisDB(cfg.Cache.RedisDB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemoryTTL(cfg.Cache.TTL)), nil
}

// Queues bundles the publish interface with the optional Redis-backed
// implementation; Redis is nil in inline mode.
type Queues struct {
	Service queue.QueueService
	Redis   *queue.RedisQueue
}

// ProvideQueue creates the job queue and registers the rebalance job.
func ProvideQueue(
	cfg *config.Config,
	rebalancer *usecase.Rebalancer,
	log *logger.Logger,
) *Queues {
	job := usecase.NewRebalanceJob(rebalancer, log)

	if !cfg.Cache.RedisEnabled {
		q := queue.NewInlineQueue()
		q.RegisterJob(job)
		return &Queues{Service: q}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	rq := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    1,
		RetryLimit: 3,
		RetryDelay: 15 * time.Second,
	}, client)
	rq.RegisterJob(job)
	return &Queues{Service: rq, Redis: rq}
}

// ProvideSnapshotService creates the read-model aggregator.
func ProvideSnapshotService(
	cfg *config.Config,
	store *history.Store,
	tracker *pairs.Tracker,
	engine *risk.Engine,
	opt *portfolio.Optimizer,
	manager *usecase.StrategyManager,
	c cache.Service,
) *usecase.SnapshotService {
	return usecase.NewSnapshotService(store, tracker, engine, opt, manager, c, cfg.Cache.TTL)
}

// ProvideHandler creates the HTTP handler with dependency health probes.
func ProvideHandler(
	log *logger.Logger,
	snap *usecase.SnapshotService,
	manager *usecase.StrategyManager,
	queues *Queues,
	collector *usecase.TickCollector,
	ticks drepo.TickStore,
) xhttp.Handler {
	checks := map[string]api.HealthCheck{
		"feed": func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("stream disconnected")
			}
			return nil
		},
	}
	if ticks != nil {
		checks["clickhouse"] = func(ctx context.Context) error {
			return ticks.Health(ctx)
		}
	}
	return api.NewHandler(log, snap, manager, queues.Service, checks)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.TickCollector,
	rebalancer *usecase.Rebalancer,
	pipeline *mid.SignalPipeline,
	handler xhttp.Handler,
	queues *Queues,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, collector, rebalancer, pipeline, handler, queues.Redis, chClient)
}
