package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		PostsTopic  string   `yaml:"posts_topic"`
		AlertsTopic string   `yaml:"alerts_topic"`
		Compression string   `yaml:"compression"`
		Producer    struct {
			RequiredAcks int           `yaml:"required_acks"`
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			BatchBytes   int           `yaml:"batch_bytes"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Analytics struct {
		BucketWidth     time.Duration `yaml:"bucket_width"`
		WindowSize      int           `yaml:"window_size"`
		MinSamples      int           `yaml:"min_samples"`
		MinPostCount    int           `yaml:"min_post_count"`
		ElevatedZ       float64       `yaml:"elevated_z"`
		AnomalousZ      float64       `yaml:"anomalous_z"`
		Hysteresis      int           `yaml:"hysteresis"`
		AlertMaxAge     time.Duration `yaml:"alert_max_age"`
		TickerLookback  time.Duration `yaml:"ticker_lookback"`
		BackfillLimit   int           `yaml:"backfill_limit"`
		Workers         int           `yaml:"workers"`
		TickerTimeout   time.Duration `yaml:"ticker_timeout"`
		WriteRetries    int           `yaml:"write_retries"`
		WriteBackoffMin time.Duration `yaml:"write_backoff_min"`
		WriteBackoffMax time.Duration `yaml:"write_backoff_max"`
	} `yaml:"analytics"`
	Scheduler struct {
		AnalyticsInterval time.Duration `yaml:"analytics_interval"`
		MaintenanceHour   int           `yaml:"maintenance_hour"`
		Retention         time.Duration `yaml:"retention"`
	} `yaml:"scheduler"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
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

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_POSTS_TOPIC"); v != "" {
		c.Kafka.PostsTopic = v
	}
	if v := os.Getenv("KAFKA_ALERTS_TOPIC"); v != "" {
		c.Kafka.AlertsTopic = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	a := &c.Analytics
	if a.BucketWidth == 0 {
		a.BucketWidth = time.Hour
	}
	if a.WindowSize == 0 {
		a.WindowSize = 24
	}
	if a.MinSamples == 0 {
		a.MinSamples = 3
	}
	if a.MinPostCount == 0 {
		a.MinPostCount = 5
	}
	if a.ElevatedZ == 0 {
		a.ElevatedZ = 1.5
	}
	if a.AnomalousZ == 0 {
		a.AnomalousZ = 2.5
	}
	if a.Hysteresis == 0 {
		a.Hysteresis = 3
	}
	if a.AlertMaxAge == 0 {
		a.AlertMaxAge = 72 * time.Hour
	}
	if a.TickerLookback == 0 {
		a.TickerLookback = 24 * time.Hour
	}
	if a.BackfillLimit == 0 {
		a.BackfillLimit = 24
	}
	if a.Workers == 0 {
		a.Workers = 4
	}
	if a.TickerTimeout == 0 {
		a.TickerTimeout = 30 * time.Second
	}
	if a.WriteRetries == 0 {
		a.WriteRetries = 3
	}
	if a.WriteBackoffMin == 0 {
		a.WriteBackoffMin = 100 * time.Millisecond
	}
	if a.WriteBackoffMax == 0 {
		a.WriteBackoffMax = 2 * time.Second
	}
	s := &c.Scheduler
	if s.AnalyticsInterval == 0 {
		s.AnalyticsInterval = time.Hour
	}
	if s.Retention == 0 {
		s.Retention = 90 * 24 * time.Hour
	}
}

// Validate checks if the configuration is valid.
// Threshold and window errors are fatal: the scheduler must not start on a
// misconfigured detector.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	a := c.Analytics
	if a.BucketWidth <= 0 {
		return fmt.Errorf("analytics.bucket_width must be positive")
	}
	if a.WindowSize < 1 {
		return fmt.Errorf("analytics.window_size must be >= 1")
	}
	if a.MinSamples < 1 {
		return fmt.Errorf("analytics.min_samples must be >= 1")
	}
	if a.MinSamples > a.WindowSize {
		return fmt.Errorf("analytics.min_samples cannot exceed window_size")
	}
	if a.ElevatedZ <= 0 || a.AnomalousZ <= 0 {
		return fmt.Errorf("analytics z-score thresholds must be positive")
	}
	if a.AnomalousZ <= a.ElevatedZ {
		return fmt.Errorf("analytics.anomalous_z must exceed elevated_z")
	}
	if a.Hysteresis < 1 {
		return fmt.Errorf("analytics.hysteresis must be >= 1")
	}
	if a.AlertMaxAge <= 0 {
		return fmt.Errorf("analytics.alert_max_age must be positive")
	}
	if a.Workers < 1 {
		return fmt.Errorf("analytics.workers must be >= 1")
	}
	if c.Scheduler.AnalyticsInterval <= 0 {
		return fmt.Errorf("scheduler.analytics_interval must be positive")
	}
	if c.Scheduler.MaintenanceHour < 0 || c.Scheduler.MaintenanceHour > 23 {
		return fmt.Errorf("scheduler.maintenance_hour must be in [0, 23]")
	}
	if c.Scheduler.Retention <= 0 {
		return fmt.Errorf("scheduler.retention must be positive")
	}
	if (c.Kafka.PostsTopic != "" || c.Kafka.AlertsTopic != "") && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required when topics are configured")
	}
	return nil
}
