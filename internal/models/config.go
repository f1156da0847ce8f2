package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Merge       MergeConfig
	Auth        AuthConfig
	Server      ServerConfig
	Redis       RedisConfig
	Catalog     CatalogConfig
	Progression ProgressionConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver           string // "sqlite3" or "postgres"
	Path             string // SQLite file path
	Url              string // Postgres DSN
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// MergeConfig holds identity merge settings
type MergeConfig struct {
	DefaultTargetEmail string
	DefaultSourceEmail string
	StepTimeout        time.Duration
	LockTTL            time.Duration
	LockWait           time.Duration
}

// AuthConfig holds operator token settings
type AuthConfig struct {
	TokenSecret string
	Issuer      string
	TokenTTL    time.Duration
	ClockSkew   time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds the optional Redis connection used for advisory locks
type RedisConfig struct {
	Url string
}

// CatalogConfig points at the achievement catalog file
type CatalogConfig struct {
	File string
}

// ProgressionConfig holds progression defaults and the full-set award targets
type ProgressionConfig struct {
	Defaults Progression
	Targets  Progression
}
