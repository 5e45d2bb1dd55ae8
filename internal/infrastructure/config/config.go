package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`     // seconds
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`    // seconds
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`     // seconds
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"` // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	LogLevel        string        `mapstructure:"logLevel"`
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TransactionConfig contains transaction engine settings
type TransactionConfig struct {
	PendingVoidWindowDays int `mapstructure:"pendingVoidWindowDays"`
	MaxPlanAttempts       int `mapstructure:"maxPlanAttempts"`
}

// StripeConfig contains card processor settings
type StripeConfig struct {
	BaseURL   string        `mapstructure:"baseUrl"`
	SecretKey string        `mapstructure:"secretKey"`
	Timeout   time.Duration `mapstructure:"timeout"` // seconds
}
