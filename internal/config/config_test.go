package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
environment: production
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 20
  write_timeout: 20
  idle_timeout: 180
  allowed_origins:
    - "https://market.example.com"
    - "https://admin.example.com"
database:
  driver: postgres
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  max_open_conns: 25
  conn_max_lifetime: "5m"
  connect_timeout: "45s"
  auto_migrate: false
query:
  default_limit: 20
  max_limit: 50
composer:
  pool_size: 4
trending:
  default_size: 5
redis:
  addr: "localhost:6379"
  db: 2
engagement:
  per_minute: 10
  burst: 2
  enable_local_fallback: false
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "production", cfg.Environment)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 20, cfg.Server.ReadTimeout)
				assert.Equal(t, 180, cfg.Server.IdleTimeout)
				assert.Equal(t, []string{"https://market.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "postgres", cfg.Database.Driver)
				assert.Equal(t, 25, cfg.Database.MaxOpenConns)
				assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, 45*time.Second, cfg.Database.ConnectTimeout)
				assert.False(t, cfg.Database.AutoMigrate)
				assert.Equal(t, 20, cfg.Query.DefaultLimit)
				assert.Equal(t, 50, cfg.Query.MaxLimit)
				assert.Equal(t, 4, cfg.Composer.PoolSize)
				assert.Equal(t, 5, cfg.Trending.DefaultSize)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, 2, cfg.Redis.DB)
				assert.True(t, cfg.Engagement.ThrottleEnabled)
				assert.Equal(t, 10, cfg.Engagement.PerMinute)
				assert.Equal(t, 2, cfg.Engagement.Burst)
				assert.False(t, cfg.Engagement.EnableLocalFallback)
			},
		},
		{
			name:        "missing config file - should work with env vars",
			configFile:  "",
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.NotNil(t, cfg)
				assert.False(t, cfg.Debug)
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "postgres", cfg.Database.Driver)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, 10, cfg.Server.ReadTimeout)
				assert.Equal(t, 10, cfg.Server.WriteTimeout)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Empty(t, cfg.Server.AllowedOrigins)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
				assert.True(t, cfg.Database.AutoMigrate)
				assert.Equal(t, 10, cfg.Query.DefaultLimit)
				assert.Equal(t, 100, cfg.Query.MaxLimit)
				assert.Equal(t, 8, cfg.Composer.PoolSize)
				assert.Equal(t, 10, cfg.Trending.DefaultSize)
				assert.Empty(t, cfg.Redis.Addr)
				assert.True(t, cfg.Engagement.ThrottleEnabled)
				assert.Equal(t, 30, cfg.Engagement.PerMinute)
				assert.Equal(t, 5, cfg.Engagement.Burst)
				assert.Equal(t, "ff:market:engagement:", cfg.Engagement.KeyPrefix)
				assert.True(t, cfg.Engagement.EnableLocalFallback)
			},
		},
		{
			name: "memory driver",
			configFile: `
database:
  driver: memory
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, "memory", cfg.Database.Driver)
			},
		},
		{
			name: "unsupported driver",
			configFile: `
database:
  driver: mysql
`,
			expectError: true,
		},
		{
			name: "default limit above max",
			configFile: `
query:
  default_limit: 200
  max_limit: 100
`,
			expectError: true,
		},
		{
			name: "throttle without rate",
			configFile: `
engagement:
  per_minute: 0
`,
			expectError: true,
		},
		{
			name: "zero pool size",
			configFile: `
composer:
  pool_size: 0
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var configFile string

			if tt.configFile != "" {
				tmpDir := t.TempDir()
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			}

			cfg, err := LoadAPIConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Host:     "db.internal",
				Port:     6432,
				User:     "market",
				Password: "p@ssw0rd!",
				DBName:   "stamps",
				SSLMode:  "disable",
			},
			expected: "host=db.internal port=6432 user=market password=p@ssw0rd! dbname=stamps sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestDatabaseConfig_ReplicaDSNs(t *testing.T) {
	cfg := DatabaseConfig{
		Host:         "primary",
		Port:         5432,
		User:         "market",
		Password:     "secret",
		DBName:       "stamps",
		SSLMode:      "disable",
		ReplicaHosts: []string{"replica-a", "replica-b"},
	}

	assert.Equal(t, []string{
		"host=replica-a port=5432 user=market password=secret dbname=stamps sslmode=disable",
		"host=replica-b port=5432 user=market password=secret dbname=stamps sslmode=disable",
	}, cfg.ReplicaDSNs())

	assert.Empty(t, (&DatabaseConfig{}).ReplicaDSNs())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// godotenv.Overload sets real process variables, so they must be removed afterwards
	envVars := map[string]string{
		"FF_MARKET_DEBUG":                 "true",
		"FF_MARKET_DATABASE_HOST":         "env-host",
		"FF_MARKET_DATABASE_PORT":         "6432",
		"FF_MARKET_DATABASE_USER":         "env-user",
		"FF_MARKET_DATABASE_PASSWORD":     "env-pass",
		"FF_MARKET_DATABASE_DBNAME":       "env-db",
		"FF_MARKET_DATABASE_SSLMODE":      "require",
		"FF_MARKET_QUERY_MAX_LIMIT":       "40",
		"FF_MARKET_TRENDING_DEFAULT_SIZE": "3",
	}
	var envContent string
	for k, v := range envVars {
		envContent += k + "=" + v + "\n"
	}
	t.Cleanup(func() {
		for k := range envVars {
			_ = os.Unsetenv(k)
		}
	})

	err = os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
  user: file-user
  password: file-pass
  dbname: file-db
  sslmode: disable
query:
  max_limit: 100
`
	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Values from the .env file win over the config file
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, "env-pass", cfg.Database.Password)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 40, cfg.Query.MaxLimit)
	assert.Equal(t, 3, cfg.Trending.DefaultSize)
}
