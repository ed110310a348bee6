package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Backend  BackendConfig  `json:"backend"`
	Redis    RedisConfig    `json:"redis"`
	Polling  PollingConfig  `json:"polling"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// BackendConfig holds upstream Portal XML backend configuration
type BackendConfig struct {
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	CacheTTL     time.Duration `json:"cache_ttl"`
}

// PollingConfig holds the interval of each monitor instance.
// The intervals mirror the portal screens: client detail status,
// dashboard fleet status, solicitação history, batch member status
// and batch aggregate status.
type PollingConfig struct {
	ClientStatusInterval time.Duration `json:"client_status_interval"`
	FleetStatusInterval  time.Duration `json:"fleet_status_interval"`
	HistoryInterval      time.Duration `json:"history_interval"`
	BatchMemberInterval  time.Duration `json:"batch_member_interval"`
	BatchInterval        time.Duration `json:"batch_interval"`
	// StaleThreshold is the number of consecutive failed ticks after
	// which a monitor snapshot is flagged as stale.
	StaleThreshold int `json:"stale_threshold"`
	// SessionTTL is how long an untouched monitor session is kept
	// before being reaped.
	SessionTTL time.Duration `json:"session_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Backend: BackendConfig{
			BaseURL:    getEnv("BACKEND_BASE_URL", ""),
			Timeout:    time.Duration(getEnvAsInt("BACKEND_TIMEOUT", 30)) * time.Second,
			MaxRetries: getEnvAsInt("BACKEND_MAX_RETRIES", 3),
			RetryDelay: time.Duration(getEnvAsInt("BACKEND_RETRY_DELAY", 2)) * time.Second,
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
			CacheTTL:     time.Duration(getEnvAsInt("REDIS_CACHE_TTL", 2)) * time.Second,
		},
		Polling: PollingConfig{
			ClientStatusInterval: getEnvAsMillis("POLL_CLIENT_STATUS_MS", 3000),
			FleetStatusInterval:  getEnvAsMillis("POLL_FLEET_STATUS_MS", 5000),
			HistoryInterval:      getEnvAsMillis("POLL_HISTORY_MS", 2000),
			BatchMemberInterval:  getEnvAsMillis("POLL_BATCH_MEMBER_MS", 2000),
			BatchInterval:        getEnvAsMillis("POLL_BATCH_MS", 5000),
			StaleThreshold:       getEnvAsInt("POLL_STALE_THRESHOLD", 3),
			SessionTTL:           time.Duration(getEnvAsInt("MONITOR_SESSION_TTL", 600)) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 300),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 30),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
	}

	// Validate required fields
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}
