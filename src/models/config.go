package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	TradingDB  MTradingDBConfig  `yaml:"trading_db"`
	Network    MNetworkConfig    `yaml:"network"`
	PriceCache MPriceCacheConfig `yaml:"price_cache"`
	Stream     MStreamConfig     `yaml:"stream"`
	MarketData MMarketDataConfig `yaml:"market_data"`
	Kline      MKlineConfig      `yaml:"kline"`
	Profiling  MProfilingConfig  `yaml:"profiling"`
}

// MStorageConfig selects the candle store backend.
type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

// MTradingDBConfig points at the accounts/orders database (postgres only).
type MTradingDBConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MPriceCacheConfig struct {
	TTLSeconds            int `yaml:"ttl_seconds"`
	HistorySeconds        int `yaml:"history_seconds"`
	SweepIntervalSeconds  int `yaml:"sweep_interval_seconds"`
	WarmupIntervalSeconds int `yaml:"warmup_interval_seconds"`
}

type MStreamConfig struct {
	SnapshotIntervalSeconds    int `yaml:"snapshot_interval_seconds"`
	AssetCurveDutySeconds      int `yaml:"asset_curve_duty_seconds"`
	AssetCurveBroadcastSeconds int `yaml:"asset_curve_broadcast_seconds"`
	SendQueueSize              int `yaml:"send_queue_size"`
}

// MMarketDataConfig describes where live prices and exchange state come from.
type MMarketDataConfig struct {
	Provider                string `yaml:"provider"` // hyperliquid | redis
	MainnetURL              string `yaml:"mainnet_url"`
	TestnetURL              string `yaml:"testnet_url"`
	RedisAddr               string `yaml:"redis_addr"`
	RedisPassword           string `yaml:"redis_password"`
	RedisDB                 int    `yaml:"redis_db"`
	ExchangeStateTTLSeconds int    `yaml:"exchange_state_ttl_seconds"`
}

type MKlineConfig struct {
	Exchange        string   `yaml:"exchange"`
	Market          string   `yaml:"market"`
	Environment     string   `yaml:"environment"`
	Symbols         []string `yaml:"symbols"`
	Periods         []string `yaml:"periods"`
	LookbackMinutes int      `yaml:"lookback_minutes"`
	CollectSchedule string   `yaml:"collect_schedule"`
	RetentionDays   int      `yaml:"retention_days"`
}

type MProfilingConfig struct {
	ServerAddress   string `yaml:"server_address"`
	ApplicationName string `yaml:"application_name"`
}

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
