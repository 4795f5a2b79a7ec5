package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Simulation    SimulationConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Logging       LoggingConfig
	Metrics       MetricsConfig
	OpenTelemetry OpenTelemetryConfig
}

// ServerConfig holds HTTP control-plane configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Mode         string // gin mode: debug, release, test
}

// SimulationConfig holds the dispatch-evaluation core's tunables (spec §6)
type SimulationConfig struct {
	AvgSpeedMPH                 float64
	BaseFare                    float64
	PerMileRate                 float64
	PerMinuteRate               float64
	DeadheadCostPerMile         float64
	WheelchairAccessibleRatio   float64
	InterRequestDelaySeconds    float64
	DefaultSimEndPaddingMinutes int
	RandomSeed                  int64
	RandomSeedSet               bool
}

// DatabaseConfig holds PostgreSQL configuration for the optional event sink.
// Host == "" disables the sink entirely; the core runs fully in-memory.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis configuration for the optional distance cache.
// Host == "" disables Redis; the in-process cache is used instead.
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level          string // debug, info, warn, error
	Format         string // json, text
	Output         string // stdout, file
	FilePath       string
	MaxSize        int // megabytes
	MaxBackups     int
	MaxAge         int // days
	Compress       bool
	SkipPaths      []string // HTTP paths to skip logging
	SkipUserAgents []string // User agents to skip logging
}

// MetricsConfig holds metrics collection configuration
type MetricsConfig struct {
	Enabled         bool
	FlushInterval   time.Duration
	RetentionPeriod time.Duration
	BatchSize       int
}

// OpenTelemetryConfig holds OpenTelemetry configuration
type OpenTelemetryConfig struct {
	ServiceName        string
	ServiceVersion     string
	Environment        string
	TracingEnabled     bool
	OTLPEndpoint       string
	SampleRate         float64
	ResourceAttributes map[string]string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("DISPATCHSIM_SERVER_PORT", "8080"),
			Host:         getEnv("DISPATCHSIM_SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("DISPATCHSIM_SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("DISPATCHSIM_SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("DISPATCHSIM_SERVER_IDLE_TIMEOUT", 60*time.Second),
			Mode:         getEnv("DISPATCHSIM_SERVER_MODE", "release"),
		},
		Simulation: SimulationConfig{
			AvgSpeedMPH:                 getFloatEnv("DISPATCHSIM_AVG_SPEED_MPH", 30.0),
			BaseFare:                    getFloatEnv("DISPATCHSIM_BASE_FARE", 2.50),
			PerMileRate:                 getFloatEnv("DISPATCHSIM_PER_MILE_RATE", 2.50),
			PerMinuteRate:               getFloatEnv("DISPATCHSIM_PER_MINUTE_RATE", 0.50),
			DeadheadCostPerMile:         getFloatEnv("DISPATCHSIM_DEADHEAD_COST_PER_MILE", 0.50),
			WheelchairAccessibleRatio:   getFloatEnv("DISPATCHSIM_WHEELCHAIR_RATIO", 0.10),
			InterRequestDelaySeconds:    getFloatEnv("DISPATCHSIM_INTER_REQUEST_DELAY_SECONDS", 0.0),
			DefaultSimEndPaddingMinutes: getIntEnv("DISPATCHSIM_SIM_END_PADDING_MINUTES", 120),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DISPATCHSIM_DB_HOST", ""),
			Port:            getEnv("DISPATCHSIM_DB_PORT", "5432"),
			User:            getEnv("DISPATCHSIM_DB_USER", "postgres"),
			Password:        getEnv("DISPATCHSIM_DB_PASSWORD", "postgres"),
			DBName:          getEnv("DISPATCHSIM_DB_NAME", "dispatchsim"),
			SSLMode:         getEnv("DISPATCHSIM_DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DISPATCHSIM_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DISPATCHSIM_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DISPATCHSIM_DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DISPATCHSIM_DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("DISPATCHSIM_REDIS_HOST", ""),
			Port:         getEnv("DISPATCHSIM_REDIS_PORT", "6379"),
			Password:     getEnv("DISPATCHSIM_REDIS_PASSWORD", ""),
			DB:           getIntEnv("DISPATCHSIM_REDIS_DB", 0),
			PoolSize:     getIntEnv("DISPATCHSIM_REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("DISPATCHSIM_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("DISPATCHSIM_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("DISPATCHSIM_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("DISPATCHSIM_REDIS_WRITE_TIMEOUT", 3*time.Second),
			TTL:          getDurationEnv("DISPATCHSIM_REDIS_CACHE_TTL", time.Hour),
		},
		Logging: LoggingConfig{
			Level:          getEnv("DISPATCHSIM_LOG_LEVEL", "info"),
			Format:         getEnv("DISPATCHSIM_LOG_FORMAT", "json"),
			Output:         getEnv("DISPATCHSIM_LOG_OUTPUT", "stdout"),
			FilePath:       getEnv("DISPATCHSIM_LOG_FILE_PATH", "./logs/dispatchsim.log"),
			MaxSize:        getIntEnv("DISPATCHSIM_LOG_MAX_SIZE", 100),
			MaxBackups:     getIntEnv("DISPATCHSIM_LOG_MAX_BACKUPS", 3),
			MaxAge:         getIntEnv("DISPATCHSIM_LOG_MAX_AGE", 28),
			Compress:       getBoolEnv("DISPATCHSIM_LOG_COMPRESS", true),
			SkipPaths:      getStringSliceEnv("DISPATCHSIM_LOG_SKIP_PATHS", []string{"/metrics", "/health"}),
			SkipUserAgents: getStringSliceEnv("DISPATCHSIM_LOG_SKIP_USER_AGENTS", []string{"kube-probe"}),
		},
		Metrics: MetricsConfig{
			Enabled:         getBoolEnv("DISPATCHSIM_METRICS_ENABLED", true),
			FlushInterval:   getDurationEnv("DISPATCHSIM_METRICS_FLUSH_INTERVAL", 5*time.Minute),
			RetentionPeriod: getDurationEnv("DISPATCHSIM_METRICS_RETENTION_PERIOD", 7*24*time.Hour),
			BatchSize:       getIntEnv("DISPATCHSIM_METRICS_BATCH_SIZE", 100),
		},
		OpenTelemetry: OpenTelemetryConfig{
			ServiceName:        getEnv("DISPATCHSIM_OTEL_SERVICE_NAME", "dispatchsim"),
			ServiceVersion:     getEnv("DISPATCHSIM_OTEL_SERVICE_VERSION", "1.0.0"),
			Environment:        getEnv("DISPATCHSIM_OTEL_ENVIRONMENT", "development"),
			TracingEnabled:     getBoolEnv("DISPATCHSIM_OTEL_ENABLED", false),
			OTLPEndpoint:       getEnv("DISPATCHSIM_OTEL_ENDPOINT", "localhost:4318"),
			SampleRate:         getFloatEnv("DISPATCHSIM_OTEL_SAMPLE_RATE", 1.0),
			ResourceAttributes: getMapEnv("DISPATCHSIM_OTEL_RESOURCE_ATTRIBUTES"),
		},
	}

	if seed := os.Getenv("DISPATCHSIM_RANDOM_SEED"); seed != "" {
		value, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DISPATCHSIM_RANDOM_SEED: %w", err)
		}
		config.Simulation.RandomSeed = value
		config.Simulation.RandomSeedSet = true
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" && c.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", c.Server.Mode)
	}

	if c.Simulation.AvgSpeedMPH <= 0 {
		return fmt.Errorf("avg speed mph must be positive")
	}
	if c.Simulation.WheelchairAccessibleRatio < 0 || c.Simulation.WheelchairAccessibleRatio > 1 {
		return fmt.Errorf("wheelchair accessible ratio must be between 0 and 1")
	}
	if c.Simulation.InterRequestDelaySeconds < 0 {
		return fmt.Errorf("inter request delay seconds must be non-negative")
	}
	if c.Simulation.DefaultSimEndPaddingMinutes < 0 {
		return fmt.Errorf("default sim end padding minutes must be non-negative")
	}

	if c.Database.Host != "" {
		if c.Database.Port == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database port, user and name are required when database host is set")
		}
		if c.Database.MaxOpenConns <= 0 || c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database connection pool sizes must be positive")
		}
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == "" {
			return fmt.Errorf("redis port is required when redis host is set")
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			return fmt.Errorf("redis database must be between 0 and 15")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis pool size must be positive")
		}
	}

	if c.Logging.Level != "debug" && c.Logging.Level != "info" && c.Logging.Level != "warn" && c.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Logging.Output != "stdout" && c.Logging.Output != "file" {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("log file path is required when output is file")
	}

	if c.Metrics.BatchSize <= 0 {
		return fmt.Errorf("metrics batch size must be positive")
	}

	return nil
}

// EventSinkEnabled reports whether the optional Postgres event sink should be wired up.
func (c *Config) EventSinkEnabled() bool {
	return c.Database.Host != ""
}

// DistanceCacheRedisEnabled reports whether the distance cache should be Redis-backed.
func (c *Config) DistanceCacheRedisEnabled() bool {
	return c.Redis.Host != ""
}

// GetDSN returns the PostgreSQL data source name
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getMapEnv(key string) map[string]string {
	result := make(map[string]string)
	if value := os.Getenv(key); value != "" {
		pairs := strings.Split(value, ",")
		for _, pair := range pairs {
			if kv := strings.SplitN(strings.TrimSpace(pair), "=", 2); len(kv) == 2 {
				result[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
	}
	return result
}

// getStringSliceEnv gets a string slice from environment variable (comma-separated)
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	parts := strings.Split(value, ",")
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Development returns a configuration suitable for local development
func Development() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "localhost",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			Mode:         "debug",
		},
		Simulation: SimulationConfig{
			AvgSpeedMPH:                 30.0,
			BaseFare:                    2.50,
			PerMileRate:                 2.50,
			PerMinuteRate:               0.50,
			DeadheadCostPerMile:         0.50,
			WheelchairAccessibleRatio:   0.10,
			InterRequestDelaySeconds:    0,
			DefaultSimEndPaddingMinutes: 120,
		},
		Logging: LoggingConfig{
			Level:      "debug",
			Format:     "text",
			Output:     "stdout",
			MaxSize:    50,
			MaxBackups: 2,
			MaxAge:     7,
			Compress:   false,
			SkipPaths:  []string{"/metrics", "/health"},
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			FlushInterval:   5 * time.Minute,
			RetentionPeriod: 24 * time.Hour,
			BatchSize:       50,
		},
	}
}

// Production returns a configuration suitable for a production control plane
func Production() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			Mode:         "release",
		},
		Simulation: SimulationConfig{
			AvgSpeedMPH:                 30.0,
			BaseFare:                    2.50,
			PerMileRate:                 2.50,
			PerMinuteRate:               0.50,
			DeadheadCostPerMile:         0.50,
			WheelchairAccessibleRatio:   0.10,
			InterRequestDelaySeconds:    0,
			DefaultSimEndPaddingMinutes: 120,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			DBName:          "dispatchsim",
			SSLMode:         "require",
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 10 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         "6379",
			PoolSize:     20,
			MinIdleConns: 5,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TTL:          time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "file",
			FilePath:   "/var/log/dispatchsim/app.log",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
			SkipPaths:  []string{"/metrics", "/health"},
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			FlushInterval:   5 * time.Minute,
			RetentionPeriod: 7 * 24 * time.Hour,
			BatchSize:       100,
		},
		OpenTelemetry: OpenTelemetryConfig{
			ServiceName:    "dispatchsim",
			ServiceVersion: "1.0.0",
			Environment:    "production",
			TracingEnabled: true,
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     0.1,
		},
	}
}
