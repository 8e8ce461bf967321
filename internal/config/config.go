package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Hosted   HostedConfig   `yaml:"hosted"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Parser   ParserConfig   `yaml:"parser"`
	Cache    CacheConfig    `yaml:"cache"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days"`
	Compress     bool   `yaml:"compress"`
}

// StorageConfig selects which providers the deployment offers
type StorageConfig struct {
	Mode            string `yaml:"mode"`             // development, hosted or relational
	DefaultProvider string `yaml:"default_provider"` // mock or relational
	PreferencePath  string `yaml:"preference_path"`  // file keeping each client's selection
	Timezone        string `yaml:"timezone"`         // calendar for date defaults
	SeedDemoData    bool   `yaml:"seed_demo_data"`
}

// Location resolves the configured timezone, defaulting to the local zone
func (s StorageConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid storage timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// DatabaseConfig holds the relational provider connection
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"` // postgres or sqlite
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	Path            string        `yaml:"path"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// HostedConfig holds the hosted backend connection and token settings
type HostedConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	JWTSecret   string `yaml:"jwt_secret"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	User        string           `yaml:"user"`
	Password    string           `yaml:"password"`
	VHost       string           `yaml:"vhost"`
	Exchange    ExchangeConfig   `yaml:"exchange"`
	Queue       QueueConfig      `yaml:"queue"`
	BindingKeys []string         `yaml:"binding_keys"`
	Connection  ConnectionConfig `yaml:"connection"`
	Publish     PublishConfig    `yaml:"publish"`
	Consumer    ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// ParserConfig holds the job posting parser settings
type ParserConfig struct {
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client IP, 0 disables
	Burst     int     `yaml:"burst"`
}

type CacheConfig struct {
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	ID              string        `yaml:"id"`
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file. ${VAR} references are
// expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Mode == "" {
		c.Storage.Mode = "development"
	}
	if c.Storage.DefaultProvider == "" {
		c.Storage.DefaultProvider = "mock"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Cache.StatsTTL == 0 {
		c.Cache.StatsTTL = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.Hosted.Enabled {
		if err := c.validateHosted(); err != nil {
			return err
		}
	}

	if c.RabbitMQ.Enabled {
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	}

	if c.Parser.RateLimit < 0 {
		return fmt.Errorf("parser rate_limit cannot be negative")
	}

	if c.Cache.StatsTTL < 0 {
		return fmt.Errorf("cache stats_ttl cannot be negative")
	}

	return nil
}

// ValidateWorkerConfig checks the settings the reconciliation worker needs
func (c *Config) ValidateWorkerConfig() error {
	if !c.RabbitMQ.Enabled {
		return fmt.Errorf("rabbitmq must be enabled for the worker")
	}
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}
	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if !c.Database.Enabled && !c.Hosted.Enabled {
		return fmt.Errorf("worker needs the relational database or the hosted backend enabled")
	}
	if c.Database.Enabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}
	if c.Hosted.Enabled && c.Hosted.DSN == "" {
		return fmt.Errorf("hosted dsn is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}

func (c *Config) validateStorage() error {
	mode := strings.ToLower(c.Storage.Mode)
	switch mode {
	case "development", "hosted", "relational":
	default:
		return fmt.Errorf("invalid storage mode: %q (must be development, hosted or relational)", c.Storage.Mode)
	}

	switch c.Storage.DefaultProvider {
	case "mock":
	case "relational":
		if mode == "hosted" {
			return fmt.Errorf("default provider relational is not available in hosted mode")
		}
		if !c.Database.Enabled {
			return fmt.Errorf("default provider relational requires database.enabled")
		}
	default:
		return fmt.Errorf("invalid default provider: %q (must be mock or relational)", c.Storage.DefaultProvider)
	}

	if mode == "hosted" && !c.Hosted.Enabled {
		return fmt.Errorf("storage mode hosted requires hosted.enabled")
	}
	if mode == "relational" && !c.Database.Enabled {
		return fmt.Errorf("storage mode relational requires database.enabled")
	}

	if _, err := c.Storage.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
		if c.Database.Path == ":memory:" {
			return fmt.Errorf("database path :memory: is not supported, use a file")
		}
	case "postgres":
		if c.Database.URL != "" {
			return nil
		}
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("invalid database driver: %q (must be postgres or sqlite)", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateHosted() error {
	if c.Hosted.DSN == "" {
		return fmt.Errorf("hosted dsn is required")
	}
	if len(c.Hosted.JWTSecret) < 16 {
		return fmt.Errorf("hosted jwt_secret must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}
	return nil
}
