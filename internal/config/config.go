package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Email    EmailConfig    `yaml:"email"`
	SMS      SMSConfig      `yaml:"sms"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Log      LogConfig      `yaml:"log"`
	Env      string         `yaml:"env"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	QueueName string `yaml:"queue_name"`
}

// RedisConfig holds the optional Redis used for dispatch locks.
// An empty Addr means locks fall back to PostgreSQL advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig holds email provider settings
type EmailConfig struct {
	Provider  string        `yaml:"provider"` // "resend" or "ses"
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	From      string        `yaml:"from"`
	BaseURL   string        `yaml:"base_url"`
	Region    string        `yaml:"region"`
	Timeout   time.Duration `yaml:"timeout"`
	RetryMax  int           `yaml:"retry_max"`
}

// SMSConfig holds SMS gateway settings
type SMSConfig struct {
	AccountID  string        `yaml:"account_id"`
	AuthToken  string        `yaml:"auth_token"`
	FromNumber string        `yaml:"from_number"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryMax   int           `yaml:"retry_max"`
}

// DispatchConfig tunes the campaign dispatcher
type DispatchConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	VIPMinOrders int           `yaml:"vip_min_orders"`

	// Simulate swaps the real providers for an in-process fake
	Simulate bool `yaml:"simulate"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then from environment variables, which take precedence.
func Load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "campaignhub",
			DBName:  "campaignhub_db",
			SSLMode: "disable",
		},
		RabbitMQ: RabbitMQConfig{
			Host:      "localhost",
			Port:      "5672",
			User:      "guest",
			Password:  "guest",
			QueueName: "campaign_dispatch",
		},
		Email: EmailConfig{
			Provider: "resend",
			BaseURL:  "https://api.resend.com",
			Region:   "us-east-1",
			Timeout:  10 * time.Second,
		},
		SMS: SMSConfig{
			BaseURL: "https://api.twilio.com/2010-04-01",
			Timeout: 10 * time.Second,
		},
		Dispatch: DispatchConfig{
			Concurrency:  5,
			SendTimeout:  15 * time.Second,
			LockTTL:      30 * time.Minute,
			VIPMinOrders: 5,
		},
		Log: LogConfig{
			Level:     "info",
			RedactPII: true,
		},
		Env: "development",
	}
}

// loadFile overlays settings from a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)

	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnv("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("POSTGRES_DB", c.Database.DBName)
	c.Database.SSLMode = getEnv("POSTGRES_SSLMODE", c.Database.SSLMode)

	c.RabbitMQ.Host = getEnv("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.RabbitMQ.Port = getEnv("RABBITMQ_PORT", c.RabbitMQ.Port)
	c.RabbitMQ.User = getEnv("RABBITMQ_DEFAULT_USER", c.RabbitMQ.User)
	c.RabbitMQ.Password = getEnv("RABBITMQ_DEFAULT_PASS", c.RabbitMQ.Password)
	c.RabbitMQ.QueueName = getEnv("RABBITMQ_QUEUE", c.RabbitMQ.QueueName)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Email.Provider = getEnv("EMAIL_PROVIDER", c.Email.Provider)
	c.Email.APIKey = getEnv("EMAIL_API_KEY", c.Email.APIKey)
	c.Email.APISecret = getEnv("EMAIL_API_SECRET", c.Email.APISecret)
	c.Email.From = getEnv("EMAIL_FROM", c.Email.From)
	c.Email.BaseURL = getEnv("EMAIL_BASE_URL", c.Email.BaseURL)
	c.Email.Region = getEnv("EMAIL_REGION", c.Email.Region)
	c.Email.Timeout = getEnvAsDuration("EMAIL_TIMEOUT", c.Email.Timeout)
	c.Email.RetryMax = getEnvAsInt("EMAIL_RETRY_MAX", c.Email.RetryMax)

	c.SMS.AccountID = getEnv("SMS_ACCOUNT_ID", c.SMS.AccountID)
	c.SMS.AuthToken = getEnv("SMS_AUTH_TOKEN", c.SMS.AuthToken)
	c.SMS.FromNumber = getEnv("SMS_FROM_NUMBER", c.SMS.FromNumber)
	c.SMS.BaseURL = getEnv("SMS_BASE_URL", c.SMS.BaseURL)
	c.SMS.Timeout = getEnvAsDuration("SMS_TIMEOUT", c.SMS.Timeout)
	c.SMS.RetryMax = getEnvAsInt("SMS_RETRY_MAX", c.SMS.RetryMax)

	c.Dispatch.Concurrency = getEnvAsInt("DISPATCH_CONCURRENCY", c.Dispatch.Concurrency)
	c.Dispatch.SendTimeout = getEnvAsDuration("DISPATCH_SEND_TIMEOUT", c.Dispatch.SendTimeout)
	c.Dispatch.LockTTL = getEnvAsDuration("DISPATCH_LOCK_TTL", c.Dispatch.LockTTL)
	c.Dispatch.VIPMinOrders = getEnvAsInt("DISPATCH_VIP_MIN_ORDERS", c.Dispatch.VIPMinOrders)
	c.Dispatch.Simulate = getEnvAsBool("DISPATCH_SIMULATE", c.Dispatch.Simulate)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.RedactPII = getEnvAsBool("LOG_REDACT_PII", c.Log.RedactPII)

	c.Env = getEnv("ENV", c.Env)
}

// Validate checks required fields and limits
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("dispatch concurrency must be at least 1, got %d", c.Dispatch.Concurrency)
	}
	if c.Dispatch.SendTimeout <= 0 {
		return fmt.Errorf("dispatch send timeout must be positive")
	}
	if c.Dispatch.VIPMinOrders < 1 {
		return fmt.Errorf("vip min orders must be at least 1, got %d", c.Dispatch.VIPMinOrders)
	}
	switch c.Email.Provider {
	case "resend", "ses":
	default:
		return fmt.Errorf("invalid email provider %q: must be 'resend' or 'ses'", c.Email.Provider)
	}
	return nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
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

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
