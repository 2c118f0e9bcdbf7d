package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "crosscast_db", cfg.Database.Database)
				assert.Equal(t, "repurpose_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "repurpose_items", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "repurpose-api-service", cfg.App.Name)

				assert.Equal(t, 5*time.Minute, cfg.Pipeline.ScanInterval)
				assert.Equal(t, time.Minute, cfg.Pipeline.DrainInterval)
				assert.Equal(t, 10, cfg.Pipeline.BatchSize)
				assert.Equal(t, 10*time.Minute, cfg.Pipeline.ItemTimeout)
				assert.Equal(t, 15*time.Minute, cfg.Pipeline.StuckThreshold)
				assert.Equal(t, 4, cfg.Pipeline.Concurrency)

				require.Contains(t, cfg.Platforms, "youtube")
				require.Contains(t, cfg.Platforms, "tiktok")
				assert.Equal(t, "tiktok-client-key", cfg.Platforms["tiktok"].ClientID)
				assert.Equal(t, "TIKTOK_CLIENT_SECRET", cfg.Platforms["tiktok"].ClientSecretEnv)
			}
		})
	}
}

func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "crosscast_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "repurpose_exchange",
			},
			Queue: QueueConfig{
				Name: "repurpose_items",
			},
		},
		Pipeline: PipelineConfig{
			ScanInterval:   5 * time.Minute,
			DrainInterval:  time.Minute,
			BatchSize:      10,
			ItemTimeout:    10 * time.Minute,
			SweepInterval:  5 * time.Minute,
			StuckThreshold: 15 * time.Minute,
			Concurrency:    4,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name: "platform missing client_id",
			mutate: func(c *Config) {
				c.Platforms = map[string]PlatformConfig{
					"tiktok": {ClientSecretEnv: "TIKTOK_CLIENT_SECRET"},
				}
			},
			wantErr:   true,
			errString: "client_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "zero scan interval",
			mutate:    func(c *Config) { c.Pipeline.ScanInterval = 0 },
			wantErr:   true,
			errString: "scan_interval must be greater than 0",
		},
		{
			name:      "zero drain interval",
			mutate:    func(c *Config) { c.Pipeline.DrainInterval = 0 },
			wantErr:   true,
			errString: "drain_interval must be greater than 0",
		},
		{
			name:      "zero batch size",
			mutate:    func(c *Config) { c.Pipeline.BatchSize = 0 },
			wantErr:   true,
			errString: "batch_size must be greater than 0",
		},
		{
			name:      "zero item timeout",
			mutate:    func(c *Config) { c.Pipeline.ItemTimeout = 0 },
			wantErr:   true,
			errString: "item_timeout must be greater than 0",
		},
		{
			name:      "negative stuck threshold",
			mutate:    func(c *Config) { c.Pipeline.StuckThreshold = -time.Minute },
			wantErr:   true,
			errString: "stuck_threshold must be greater than 0",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Pipeline.Concurrency = 0 },
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "shared validation still applies",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPlatformConfig_ClientSecret(t *testing.T) {
	t.Run("resolves from environment", func(t *testing.T) {
		t.Setenv("TEST_PLATFORM_SECRET", "s3cret")

		pc := PlatformConfig{ClientID: "abc", ClientSecretEnv: "TEST_PLATFORM_SECRET"}
		assert.Equal(t, "s3cret", pc.ClientSecret())
	})

	t.Run("unset variable yields empty secret", func(t *testing.T) {
		pc := PlatformConfig{ClientID: "abc", ClientSecretEnv: "TEST_PLATFORM_SECRET_UNSET"}
		assert.Equal(t, "", pc.ClientSecret())
	})
}
