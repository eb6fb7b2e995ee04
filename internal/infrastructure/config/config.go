package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Agents    AgentsConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the aggregate cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AgentsConfig holds the heuristic thresholds for the four analysis agents.
// The defaults are the production values; they are configurable so a
// per-country deployment can retune without a release.
type AgentsConfig struct {
	ScanBatchSize    int     // how many recent documents one sentinel run inspects
	BaseToleranceAOA float64 // allowed |total - tax - base| divergence

	VATRate float64 // Angolan VAT, applied to forecast and recoverable math

	TrendWindowMonths int     // months of history the predictor reads
	GrowthThreshold   float64 // last/average above this = growth
	DeclineThreshold  float64 // last/average below this = decline
	GrowthProjection  float64 // forecast multiplier on growth
	DeclineProjection float64 // forecast multiplier on decline
	VATAlertRatio     float64 // forecast VAT vs historical VAT alert ratio
	MinHistoryMonths  int     // minimum months before a trend is computed

	RegimeWindowMonths   int     // trailing window for the regime optimizer
	RecoverableThreshold float64 // absolute AOA threshold for the opportunity alert
}

// SchedulerConfig holds the agent cron trigger configuration
type SchedulerConfig struct {
	Enabled       bool
	DailyRunHour  int
	DailyRunMin   int
	CheckInterval time.Duration
}

// MetricsConfig holds the Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// TelemetryConfig holds OpenTelemetry tracing configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with TRIBUTA_ prefix (e.g., TRIBUTA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("TRIBUTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaulted through viper rather than applyDefaults because 0 is a
	// legitimate value (midnight) that a zero-check would clobber.
	v.SetDefault("scheduler.daily_run_hour", 2)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Agents: AgentsConfig{
			ScanBatchSize:        v.GetInt("agents.scan_batch_size"),
			BaseToleranceAOA:     v.GetFloat64("agents.base_tolerance"),
			VATRate:              v.GetFloat64("agents.vat_rate"),
			TrendWindowMonths:    v.GetInt("agents.trend_window_months"),
			GrowthThreshold:      v.GetFloat64("agents.growth_threshold"),
			DeclineThreshold:     v.GetFloat64("agents.decline_threshold"),
			GrowthProjection:     v.GetFloat64("agents.growth_projection"),
			DeclineProjection:    v.GetFloat64("agents.decline_projection"),
			VATAlertRatio:        v.GetFloat64("agents.vat_alert_ratio"),
			MinHistoryMonths:     v.GetInt("agents.min_history_months"),
			RegimeWindowMonths:   v.GetInt("agents.regime_window_months"),
			RecoverableThreshold: v.GetFloat64("agents.recoverable_threshold"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			DailyRunHour:  v.GetInt("scheduler.daily_run_hour"),
			DailyRunMin:   v.GetInt("scheduler.daily_run_minute"),
			CheckInterval: v.GetDuration("scheduler.check_interval"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tributa-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "tributa"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Agents.ScanBatchSize == 0 {
		cfg.Agents.ScanBatchSize = 100
	}
	if cfg.Agents.BaseToleranceAOA == 0 {
		cfg.Agents.BaseToleranceAOA = 1.0
	}
	if cfg.Agents.VATRate == 0 {
		cfg.Agents.VATRate = 0.14
	}
	if cfg.Agents.TrendWindowMonths == 0 {
		cfg.Agents.TrendWindowMonths = 6
	}
	if cfg.Agents.GrowthThreshold == 0 {
		cfg.Agents.GrowthThreshold = 1.10
	}
	if cfg.Agents.DeclineThreshold == 0 {
		cfg.Agents.DeclineThreshold = 0.90
	}
	if cfg.Agents.GrowthProjection == 0 {
		cfg.Agents.GrowthProjection = 1.05
	}
	if cfg.Agents.DeclineProjection == 0 {
		cfg.Agents.DeclineProjection = 0.95
	}
	if cfg.Agents.VATAlertRatio == 0 {
		cfg.Agents.VATAlertRatio = 1.2
	}
	if cfg.Agents.MinHistoryMonths == 0 {
		cfg.Agents.MinHistoryMonths = 2
	}
	if cfg.Agents.RegimeWindowMonths == 0 {
		cfg.Agents.RegimeWindowMonths = 12
	}
	if cfg.Agents.RecoverableThreshold == 0 {
		cfg.Agents.RecoverableThreshold = 100000
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9464"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Agents.GrowthThreshold <= 1.0 {
		return fmt.Errorf("agents.growth_threshold must be above 1.0, got %f", c.Agents.GrowthThreshold)
	}
	if c.Agents.DeclineThreshold >= 1.0 || c.Agents.DeclineThreshold <= 0 {
		return fmt.Errorf("agents.decline_threshold must be in (0, 1), got %f", c.Agents.DeclineThreshold)
	}
	if c.Agents.VATRate <= 0 || c.Agents.VATRate >= 1 {
		return fmt.Errorf("agents.vat_rate must be in (0, 1), got %f", c.Agents.VATRate)
	}
	if c.Scheduler.DailyRunHour < 0 || c.Scheduler.DailyRunHour > 23 {
		return fmt.Errorf("scheduler.daily_run_hour must be in [0, 23], got %d", c.Scheduler.DailyRunHour)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisAddr returns the host:port address for the Redis client
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
