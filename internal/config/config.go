package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Classifier    ClassifierConfig    `mapstructure:"classifier"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Retention     RetentionConfig     `mapstructure:"retention"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration. SQLite is the
// default backend; MySQL is selected by setting driver to "mysql".
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// ClassifierConfig holds the AI classifier provider configuration
type ClassifierConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	TextModel   string        `mapstructure:"text_model"`
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// QueueConfig holds background task runner configuration.
// RequeueStaleAfter controls the sweep that re-enqueues requests left in a
// non-terminal status with no live task, e.g. after a crash; zero disables it.
type QueueConfig struct {
	Workers           int           `mapstructure:"workers"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	RequeueStaleAfter time.Duration `mapstructure:"requeue_stale_after"`
}

// NotificationsConfig holds the outbound alert channel configuration
type NotificationsConfig struct {
	Email EmailChannelConfig `mapstructure:"email"`
	Chat  ChatChannelConfig  `mapstructure:"chat"`
}

// EmailChannelConfig holds Gmail API configuration for alert emails
type EmailChannelConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	From         string `mapstructure:"from"`
	// To optionally copies a moderator mailbox on every alert. Alerts
	// always go to the submitter.
	To string `mapstructure:"to"`
}

// ChatChannelConfig holds chat webhook configuration. URLs use shoutrrr
// notation, e.g. slack://token-a/token-b/token-c or discord://token@id.
type ChatChannelConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URLs    []string      `mapstructure:"urls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetentionConfig holds the periodic cleanup configuration
type RetentionConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	IntervalHours int           `mapstructure:"interval_hours"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

// TelemetryConfig holds error reporting configuration
type TelemetryConfig struct {
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "moderation.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("classifier.base_url", "https://api.openai.com/v1")
	viper.SetDefault("classifier.text_model", "gpt-4o-mini")
	viper.SetDefault("classifier.vision_model", "gpt-4o")
	viper.SetDefault("classifier.timeout", "30s")
	viper.SetDefault("classifier.temperature", 0.0)
	viper.SetDefault("classifier.max_tokens", 500)

	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.max_attempts", 3)
	viper.SetDefault("queue.initial_backoff", "2s")
	viper.SetDefault("queue.max_backoff", "1m")
	viper.SetDefault("queue.backoff_multiplier", 2.0)
	viper.SetDefault("queue.requeue_stale_after", "10m")

	viper.SetDefault("notifications.email.enabled", false)
	viper.SetDefault("notifications.chat.enabled", false)
	viper.SetDefault("notifications.chat.timeout", "10s")

	viper.SetDefault("retention.enabled", false)
	viper.SetDefault("retention.interval_hours", 1)
	viper.SetDefault("retention.max_age", "720h")

	viper.SetDefault("telemetry.environment", "production")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Classifier
	viper.BindEnv("classifier.base_url", "CLASSIFIER_BASE_URL")
	viper.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY", "OPENAI_API_KEY")
	viper.BindEnv("classifier.text_model", "CLASSIFIER_TEXT_MODEL")
	viper.BindEnv("classifier.vision_model", "CLASSIFIER_VISION_MODEL")
	viper.BindEnv("classifier.timeout", "CLASSIFIER_TIMEOUT")

	// Queue
	viper.BindEnv("queue.workers", "QUEUE_WORKERS")
	viper.BindEnv("queue.max_attempts", "QUEUE_MAX_ATTEMPTS")
	viper.BindEnv("queue.initial_backoff", "QUEUE_INITIAL_BACKOFF")
	viper.BindEnv("queue.max_backoff", "QUEUE_MAX_BACKOFF")
	viper.BindEnv("queue.requeue_stale_after", "QUEUE_REQUEUE_STALE_AFTER")

	// Notifications
	viper.BindEnv("notifications.email.enabled", "NOTIFY_EMAIL_ENABLED")
	viper.BindEnv("notifications.email.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("notifications.email.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("notifications.email.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("notifications.email.from", "NOTIFY_EMAIL_FROM")
	viper.BindEnv("notifications.email.to", "NOTIFY_EMAIL_TO")
	viper.BindEnv("notifications.chat.enabled", "NOTIFY_CHAT_ENABLED")
	viper.BindEnv("notifications.chat.urls", "NOTIFY_CHAT_URLS")

	// Retention
	viper.BindEnv("retention.enabled", "RETENTION_ENABLED")
	viper.BindEnv("retention.interval_hours", "RETENTION_INTERVAL_HOURS")
	viper.BindEnv("retention.max_age", "RETENTION_MAX_AGE")

	// Telemetry
	viper.BindEnv("telemetry.sentry_dsn", "SENTRY_DSN")
	viper.BindEnv("telemetry.environment", "SENTRY_ENVIRONMENT")
}

// GetDSN returns the MySQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Classifier.APIKey == "" {
		return fmt.Errorf("classifier API key is required")
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier timeout must be greater than 0")
	}

	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue workers must be greater than 0")
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue max attempts must be greater than 0")
	}
	if c.Queue.InitialBackoff <= 0 || c.Queue.MaxBackoff < c.Queue.InitialBackoff {
		return fmt.Errorf("queue backoff bounds are invalid")
	}
	if c.Queue.BackoffMultiplier < 1 {
		return fmt.Errorf("queue backoff multiplier must be at least 1")
	}

	if c.Notifications.Email.Enabled {
		e := c.Notifications.Email
		if e.ClientID == "" || e.ClientSecret == "" || e.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when email notifications are enabled")
		}
		if e.From == "" {
			return fmt.Errorf("email from address is required when email notifications are enabled")
		}
	}
	if c.Notifications.Chat.Enabled && len(c.Notifications.Chat.URLs) == 0 {
		return fmt.Errorf("at least one chat URL is required when chat notifications are enabled")
	}

	if c.Retention.Enabled {
		if c.Retention.IntervalHours <= 0 {
			return fmt.Errorf("retention interval must be greater than 0")
		}
		if c.Retention.MaxAge <= 0 {
			return fmt.Errorf("retention max age must be greater than 0")
		}
	}

	return nil
}
