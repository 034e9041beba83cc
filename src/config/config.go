package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"market-stream/src/helpers"
	"market-stream/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes, applying defaults and
// environment overrides.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 4
	}

	pc := &c.PriceCache
	if pc.TTLSeconds == 0 {
		pc.TTLSeconds = 30
	}
	if pc.HistorySeconds == 0 {
		pc.HistorySeconds = 3600
	}
	if pc.SweepIntervalSeconds == 0 {
		pc.SweepIntervalSeconds = 60
	}
	if pc.WarmupIntervalSeconds == 0 {
		pc.WarmupIntervalSeconds = 5
	}

	st := &c.Stream
	if st.SnapshotIntervalSeconds == 0 {
		st.SnapshotIntervalSeconds = 10
	}
	if st.AssetCurveDutySeconds == 0 {
		st.AssetCurveDutySeconds = 10
	}
	if st.AssetCurveBroadcastSeconds == 0 {
		st.AssetCurveBroadcastSeconds = 60
	}
	if st.SendQueueSize == 0 {
		st.SendQueueSize = 256
	}

	md := &c.MarketData
	if md.Provider == "" {
		md.Provider = "hyperliquid"
	}
	if md.MainnetURL == "" {
		md.MainnetURL = "https://api.hyperliquid.xyz/info"
	}
	if md.TestnetURL == "" {
		md.TestnetURL = "https://api.hyperliquid-testnet.xyz/info"
	}
	if md.ExchangeStateTTLSeconds == 0 {
		md.ExchangeStateTTLSeconds = 360
	}

	kl := &c.Kline
	if kl.Exchange == "" {
		kl.Exchange = "hyperliquid"
	}
	if kl.Market == "" {
		kl.Market = models.DefaultMarket
	}
	if kl.Environment == "" {
		kl.Environment = models.DefaultEnvironment
	}
	if len(kl.Periods) == 0 {
		kl.Periods = []string{"1m"}
	}
	if kl.LookbackMinutes == 0 {
		kl.LookbackMinutes = 60
	}
	if kl.CollectSchedule == "" {
		kl.CollectSchedule = "@every 1m"
	}
	if kl.RetentionDays == 0 {
		kl.RetentionDays = 30
	}

	if c.Profiling.ApplicationName == "" {
		c.Profiling.ApplicationName = c.Name
	}
}

// -----------------------------------------------------------------------------

// applyEnvOverrides lets deployments inject secrets without editing YAML.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv("DB_CONNECTION_STRING"); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv("TRADING_DB_DSN"); v != "" {
		c.TradingDB.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.MarketData.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.MarketData.RedisPassword = v
	}
	if v := os.Getenv("PYROSCOPE_SERVER"); v != "" {
		c.Profiling.ServerAddress = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Candle storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if c.TradingDB.DSN == "" {
		return fmt.Errorf("trading database dsn cannot be empty")
	}

	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if c.PriceCache.TTLSeconds <= 0 || c.PriceCache.HistorySeconds <= 0 {
		return fmt.Errorf("price cache ttl and history must be positive")
	}
	if c.Stream.AssetCurveDutySeconds < 0 || c.Stream.AssetCurveDutySeconds > 60 {
		return fmt.Errorf("asset curve duty seconds must be within 0..60")
	}

	switch c.MarketData.Provider {
	case "hyperliquid":
	case "redis":
		if c.MarketData.RedisAddr == "" {
			return fmt.Errorf("redis address required for redis price provider")
		}
	default:
		return fmt.Errorf("unsupported market data provider: %s", c.MarketData.Provider)
	}

	if c.Kline.RetentionDays <= 0 {
		return fmt.Errorf("kline retention days must be greater than 0")
	}
	for i, s := range c.Kline.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("kline symbol %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
