package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug       bool   `mapstructure:"debug"`
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver selects the store backend: "postgres" or "memory"
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`    // Total time allowed for retrying the initial connection
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// ReplicaHosts are read replicas sharing the primary's port and credentials
	ReplicaHosts []string `mapstructure:"replica_hosts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueryConfig holds listing limits
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// ComposerConfig holds the side data fan-out configuration
type ComposerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// TrendingConfig holds ranking configuration
type TrendingConfig struct {
	DefaultSize int `mapstructure:"default_size"`
}

// RedisConfig holds redis connection configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // Empty disables redis
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngagementConfig holds the view and favourite throttle configuration
type EngagementConfig struct {
	ThrottleEnabled     bool   `mapstructure:"throttle_enabled"`
	PerMinute           int    `mapstructure:"per_minute"`
	Burst               int    `mapstructure:"burst"`
	KeyPrefix           string `mapstructure:"key_prefix"`
	EnableLocalFallback bool   `mapstructure:"enable_local_fallback"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	Query      QueryConfig    `mapstructure:"query"`
	Composer   ComposerConfig `mapstructure:"composer"`
	Trending   TrendingConfig `mapstructure:"trending"`
	Redis      RedisConfig    `mapstructure:"redis"`
	// Engagement throttles the counter endpoints
	Engagement EngagementConfig `mapstructure:"engagement"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.connect_timeout", "30s")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("query.default_limit", 10)
	v.SetDefault("query.max_limit", 100)
	v.SetDefault("composer.pool_size", 8)
	v.SetDefault("trending.default_size", 10)
	v.SetDefault("engagement.throttle_enabled", true)
	v.SetDefault("engagement.per_minute", 30)
	v.SetDefault("engagement.burst", 5)
	v.SetDefault("engagement.key_prefix", "ff:market:engagement:")
	v.SetDefault("engagement.enable_local_fallback", true)

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that viper cannot
func (c *APIConfig) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Query.DefaultLimit <= 0 || c.Query.MaxLimit <= 0 {
		return fmt.Errorf("query limits must be positive")
	}
	if c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit %d exceeds query.max_limit %d", c.Query.DefaultLimit, c.Query.MaxLimit)
	}
	if c.Composer.PoolSize <= 0 {
		return fmt.Errorf("composer.pool_size must be positive")
	}
	if c.Engagement.ThrottleEnabled && c.Engagement.PerMinute <= 0 {
		return fmt.Errorf("engagement.per_minute must be positive when the throttle is enabled")
	}
	return nil
}

func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"environment",
		// Database
		"database.driver",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		"database.connect_timeout",
		"database.auto_migrate",
		"database.replica_hosts",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
		// Read model
		"query.default_limit",
		"query.max_limit",
		"composer.pool_size",
		"trending.default_size",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// Engagement throttle
		"engagement.throttle_enabled",
		"engagement.per_minute",
		"engagement.burst",
		"engagement.key_prefix",
		"engagement.enable_local_fallback",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return c.dsn(c.Host)
}

// ReplicaDSNs returns one connection string per replica host
func (c *DatabaseConfig) ReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.ReplicaHosts))
	for _, host := range c.ReplicaHosts {
		dsns = append(dsns, c.dsn(host))
	}
	return dsns
}

func (c *DatabaseConfig) dsn(host string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
