package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Email    EmailConfig
	Queue    QueueConfig
	Reminder ReminderConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// EmailConfig is the explicit provider configuration constructed once at
// process start and injected into the router and processor. There is no
// ambient global lookup.
type EmailConfig struct {
	Provider        string         `mapstructure:"provider"`
	BackupProviders []string       `mapstructure:"backup_providers"`
	FromAddress     string         `mapstructure:"from_address"`
	FromName        string         `mapstructure:"from_name"`
	RetryAttempts   int            `mapstructure:"retry_attempts"`
	TimeoutSeconds  int            `mapstructure:"timeout"`
	SMTP            SMTPConfig     `mapstructure:"smtp"`
	SendGrid        SendGridConfig `mapstructure:"sendgrid"`
	Mailgun         MailgunConfig  `mapstructure:"mailgun"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Encryption string `mapstructure:"encryption"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

type SendGridConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type MailgunConfig struct {
	APIKey string `mapstructure:"api_key"`
	Domain string `mapstructure:"domain"`
}

type QueueConfig struct {
	BatchSize           int `mapstructure:"batch_size"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	Concurrency         int `mapstructure:"concurrency"`
	RatePerSecond       int `mapstructure:"rate_per_second"`
	ClaimGraceMinutes   int `mapstructure:"claim_grace_minutes"`
}

type ReminderConfig struct {
	WindowDays         int `mapstructure:"window_days"`
	SweepIntervalHours int `mapstructure:"sweep_interval_hours"`
}

func (c EmailConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c QueueConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c QueueConfig) ClaimGrace() time.Duration {
	if c.ClaimGraceMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.ClaimGraceMinutes) * time.Minute
}

func (c ReminderConfig) Window() time.Duration {
	days := c.WindowDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c ReminderConfig) SweepInterval() time.Duration {
	if c.SweepIntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("email.retry_attempts", 3)
	viper.SetDefault("email.timeout", 30)
	viper.SetDefault("queue.batch_size", 50)
	viper.SetDefault("queue.concurrency", 4)
	viper.SetDefault("queue.rate_per_second", 10)
	viper.SetDefault("reminder.window_days", 90)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
