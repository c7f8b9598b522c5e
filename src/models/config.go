package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Backend  MBackendConfig `yaml:"backend"`
	Source   MSourceConfig  `yaml:"source"`
	Session  MSessionConfig `yaml:"session"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "sqlite" or "postgres"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MBackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	SessionPath    string `yaml:"session_path"`
	CandlesPath    string `yaml:"candles_path"`
	RequestTimeout int    `yaml:"timeout"` // seconds
	MaxRetries     int    `yaml:"retries"` // session fetch only; candle POSTs never retry
}

type MSourceConfig struct {
	Mode           string `yaml:"mode"` // "live" or "synthetic"
	WsURL          string `yaml:"ws_url"`
	TickIntervalMs int    `yaml:"tick_interval_ms"`
	QueueSize      int    `yaml:"queue_size"` // pending candle flush queue
}

type MSessionConfig struct {
	FallbackStart   string `yaml:"fallback_start"` // "HH:mm"
	FallbackEnd     string `yaml:"fallback_end"`
	RetryOnFallback bool   `yaml:"retry_on_fallback"`
	CalendarMIC     string `yaml:"calendar_mic"`
}
