package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Files      FilesConfig      `yaml:"files"`
	Database   DatabaseConfig   `yaml:"database"`
	Slack      SlackConfig      `yaml:"slack"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// FilesConfig points at the on-disk configuration and state locations.
type FilesConfig struct {
	MachinesConfig string `yaml:"machines_config"`
	UsersConfig    string `yaml:"users_config"`
	StateDir       string `yaml:"state_dir"`
}

// DatabaseConfig holds the event-history database configuration. A DSN
// beginning with "postgres://" selects Postgres; anything else is treated
// as a SQLite path.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// SlackConfig holds the announcement webhook settings.
type SlackConfig struct {
	WebhookURL     string `yaml:"webhook_url"`
	SigningSecret  string `yaml:"signing_secret"`
	CommandEnabled bool   `yaml:"command_enabled"`
}

// PushConfig holds the VAPID keys for staff web push alerts.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 15
	}
	if cfg.Files.MachinesConfig == "" {
		cfg.Files.MachinesConfig = "machines.json"
	}
	if cfg.Files.UsersConfig == "" {
		cfg.Files.UsersConfig = "users.json"
	}
	if cfg.Files.StateDir == "" {
		cfg.Files.StateDir = "machine_state"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "macd.db"
	}
	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
