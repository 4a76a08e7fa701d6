package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. Defaults come from struct
// tags; invalid values are rejected at load time, before the processing loop
// starts.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Feed struct {
		Backend          string        `yaml:"backend" default:"websocket" validate:"oneof=websocket kafka"`
		URL              string        `yaml:"url"`
		Symbols          []string      `yaml:"symbols" validate:"min=1"`
		ReconnectDelay   time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval     time.Duration `yaml:"ping_interval" default:"15s"`
		MaxLatency       time.Duration `yaml:"max_latency" default:"200ms" validate:"gt=0"`
		MomentumLookback int           `yaml:"momentum_lookback" default:"5" validate:"gte=1"`
		VolatilityWindow int           `yaml:"volatility_window" default:"20" validate:"gte=2"`
	} `yaml:"feed"`

	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		TickTopic   string   `yaml:"tick_topic" default:"md.ticks"`
		SignalTopic string   `yaml:"signal_topic" default:"trade.signals"`
		GroupID     string   `yaml:"group_id" default:"quantcore"`
		Compression string   `yaml:"compression" default:"snappy"`
		Workers     int      `yaml:"workers" default:"2" validate:"gt=0"`
		BufferSize  int      `yaml:"buffer_size" default:"1024" validate:"gt=0"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"quantcore"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BatchSize    int           `yaml:"batch_size" default:"100" validate:"gt=0"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s" validate:"gt=0"`
	} `yaml:"clickhouse"`

	Cache struct {
		RedisEnabled bool          `yaml:"redis_enabled"`
		RedisAddr    string        `yaml:"redis_addr" default:"localhost:6379"`
		RedisDB      int           `yaml:"redis_db"`
		TTL          time.Duration `yaml:"ttl" default:"30s"`
	} `yaml:"cache"`

	History struct {
		Capacity int `yaml:"capacity" default:"252" validate:"gte=30,lte=10000"`
	} `yaml:"history"`

	Pairs struct {
		Mode                 string        `yaml:"mode" default:"cointegration" validate:"oneof=cointegration correlation"`
		PValueThreshold      float64       `yaml:"p_value_threshold" default:"0.05" validate:"gt=0,lt=1"`
		CorrelationThreshold float64       `yaml:"correlation_threshold" default:"0.7" validate:"gt=0,lt=1"`
		CorrelationWindow    int           `yaml:"correlation_window" default:"30" validate:"gte=10"`
		MinObservations      int           `yaml:"min_observations" default:"50" validate:"gte=20"`
		MaxStrikes           int           `yaml:"max_strikes" default:"2" validate:"gte=1"`
		RescanEvery          int           `yaml:"rescan_every" default:"100" validate:"gt=0"`
		RescanTimeout        time.Duration `yaml:"rescan_timeout" default:"5s"`
	} `yaml:"pairs"`

	Strategies struct {
		StatArb struct {
			Enabled      bool    `yaml:"enabled" default:"true"`
			ZThreshold   float64 `yaml:"z_threshold" default:"2.0" validate:"gt=0"`
			BaseQuantity float64 `yaml:"base_quantity" default:"10" validate:"gt=0"`
		} `yaml:"statarb"`
		PairsTrading struct {
			Enabled      bool    `yaml:"enabled"`
			ZThreshold   float64 `yaml:"z_threshold" default:"1.5" validate:"gt=0"`
			BaseQuantity float64 `yaml:"base_quantity" default:"10" validate:"gt=0"`
		} `yaml:"pairs_trading"`
		Scalper struct {
			Enabled           bool          `yaml:"enabled"`
			MomentumThreshold float64       `yaml:"momentum_threshold" default:"0.002" validate:"gt=0"`
			MaxQuoteAge       time.Duration `yaml:"max_quote_age" default:"200ms" validate:"gt=0"`
			MaxSpreadFraction float64       `yaml:"max_spread_fraction" default:"0.001" validate:"gt=0"`
			BaseQuantity      float64       `yaml:"base_quantity" default:"5" validate:"gt=0"`
		} `yaml:"scalper"`
		MarketMaker struct {
			Enabled          bool    `yaml:"enabled"`
			Window           int     `yaml:"window" default:"30" validate:"gte=5"`
			SpreadMultiplier float64 `yaml:"spread_multiplier" default:"1.5" validate:"gt=0"`
			InventoryLimit   float64 `yaml:"inventory_limit" default:"100" validate:"gt=0"`
			BaseQuantity     float64 `yaml:"base_quantity" default:"5" validate:"gt=0"`
		} `yaml:"market_maker"`
	} `yaml:"strategies"`

	Risk struct {
		InitialEquity        float64           `yaml:"initial_equity" default:"100000" validate:"gt=0"`
		CVaRConfidence       float64           `yaml:"cvar_confidence" default:"0.05" validate:"gt=0,lt=0.5"`
		ATRPeriod            int               `yaml:"atr_period" default:"14" validate:"gte=2"`
		ATRMultiplier        float64           `yaml:"atr_multiplier" default:"2.0" validate:"gt=0"`
		MaxPositionFraction  float64           `yaml:"max_position_fraction" default:"0.10" validate:"gt=0,lte=1"`
		MaxDailyLossFraction float64           `yaml:"max_daily_loss_fraction" default:"0.03" validate:"gt=0,lte=1"`
		MaxDrawdownFraction  float64           `yaml:"max_drawdown_fraction" default:"0.15" validate:"gt=0,lte=1"`
		SectorExposureLimit  float64           `yaml:"sector_exposure_limit" default:"0.30" validate:"gt=0,lte=1"`
		SingleWeightLimit    float64           `yaml:"single_weight_limit" default:"0.35" validate:"gt=0,lte=1"`
		HedgeRatioCap        float64           `yaml:"hedge_ratio_cap" default:"0.40" validate:"gt=0,lte=1"`
		Sectors              map[string]string `yaml:"sectors"`
		HedgeInstruments     map[string]string `yaml:"hedge_instruments"`
	} `yaml:"risk"`

	Optimizer struct {
		Objective         string        `yaml:"objective" default:"max_sharpe" validate:"oneof=max_sharpe risk_parity adaptive_risk_parity tax_aware"`
		RiskFreeRate      float64       `yaml:"risk_free_rate" default:"0.0"`
		FrontierPoints    int           `yaml:"frontier_points" default:"20" validate:"gte=2,lte=200"`
		TaxRate           float64       `yaml:"tax_rate" default:"0.15" validate:"gte=0,lt=1"`
		HoldingPeriodDays int           `yaml:"holding_period_days" default:"365" validate:"gt=0"`
		RebalanceInterval time.Duration `yaml:"rebalance_interval" default:"1m" validate:"gt=0"`
		MinObservations   int           `yaml:"min_observations" default:"30" validate:"gte=10"`
	} `yaml:"optimizer"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("FEED_BACKEND"); v != "" {
		c.Feed.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Feed.Backend == "websocket" && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required for websocket backend")
	}
	if c.Feed.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for kafka backend")
	}
	if c.Pairs.MinObservations > c.History.Capacity {
		return fmt.Errorf("pairs.min_observations (%d) exceeds history.capacity (%d)",
			c.Pairs.MinObservations, c.History.Capacity)
	}
	if c.Pairs.CorrelationWindow > c.History.Capacity {
		return fmt.Errorf("pairs.correlation_window (%d) exceeds history.capacity (%d)",
			c.Pairs.CorrelationWindow, c.History.Capacity)
	}
	return nil
}
