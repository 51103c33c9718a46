package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Cache  CacheConfig  `yaml:"cache"`
	Remote RemoteConfig `yaml:"remote"`
	Sync   SyncConfig   `yaml:"sync"`
	Redis  RedisConfig  `yaml:"redis"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// CacheConfig describes the on-device durable cache.
type CacheConfig struct {
	Path string `yaml:"path"` // sqlite file path
}

// RemoteConfig describes the authoritative network-backed store.
type RemoteConfig struct {
	Driver      string        `yaml:"driver"` // postgres, mysql
	DSN         string        `yaml:"dsn"`
	AccessToken string        `yaml:"access_token"` // bearer token for row-level policies
	Timeout     time.Duration `yaml:"timeout"`      // per-call network timeout
	RateLimit   float64       `yaml:"rate_limit"`   // calls per second, 0 = unlimited
	RateBurst   int           `yaml:"rate_burst"`
}

// SyncConfig tunes the push retry policy and the pull scheduler.
type SyncConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`  // push retry attempts
	InitialDelay time.Duration `yaml:"initial_delay"` // first backoff delay
	CronSpec     string        `yaml:"cron_spec"`     // periodic full-sync schedule
}

// RedisConfig enables the asynq-backed outbound queue. When disabled,
// pushes run on in-process goroutines instead.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "teamsync.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := *DefaultConfig()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Path: "teamsync.db",
		},
		Remote: RemoteConfig{
			Driver:    "postgres",
			Timeout:   10 * time.Second,
			RateLimit: 20,
			RateBurst: 40,
		},
		Sync: SyncConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			CronSpec:     "*/5 * * * *",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if level := os.Getenv("TEAMSYNC_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if path := os.Getenv("TEAMSYNC_CACHE_PATH"); path != "" {
		c.Cache.Path = path
	}
	if driver := os.Getenv("TEAMSYNC_REMOTE_DRIVER"); driver != "" {
		c.Remote.Driver = driver
	}
	if dsn := os.Getenv("TEAMSYNC_REMOTE_DSN"); dsn != "" {
		c.Remote.DSN = dsn
	}
	if token := os.Getenv("TEAMSYNC_ACCESS_TOKEN"); token != "" {
		c.Remote.AccessToken = token
	}
	if timeout := os.Getenv("TEAMSYNC_REMOTE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Remote.Timeout = d
		}
	}
	if spec := os.Getenv("TEAMSYNC_SYNC_CRON"); spec != "" {
		c.Sync.CronSpec = spec
	}
	if attempts := os.Getenv("TEAMSYNC_SYNC_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil && n > 0 {
			c.Sync.MaxAttempts = n
		}
	}
	if addr := os.Getenv("TEAMSYNC_REDIS_ADDR"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = addr
	}
	if password := os.Getenv("TEAMSYNC_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("TEAMSYNC_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "teamsync.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
