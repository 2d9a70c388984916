package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	RedisAddr         string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db" yaml:"redis_db"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		RedisAddr:         "localhost:6379",
		RedisDB:           0,
		DatabasePath:      "roomcast.db",
	}
}

// Overrides returns a config with every field unset for use with UpdateFrom.
// RedisDB is -1 rather than zero so an explicit DB 0 still counts as set.
func Overrides() Config {
	return Config{RedisDB: -1}
}

// UpdateFrom overwrites set values from other config into receiver. Strings
// and durations use the zero value as unset; RedisDB uses a negative value,
// since DB 0 is a legal override.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RedisPassword != "" {
		c.RedisPassword = other.RedisPassword
	}
	if other.RedisDB >= 0 {
		c.RedisDB = other.RedisDB
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
