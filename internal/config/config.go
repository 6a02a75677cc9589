// Package config holds the application configuration, populated by viper
// from the config file, environment, and flags.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the root configuration for the loader CLI.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j" yaml:"neo4j"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Loader  LoaderConfig  `mapstructure:"loader" yaml:"loader"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// Neo4jConfig is the graph database connection target.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// ResolvePassword falls back to the conventional environment variable when
// neither flag nor config file provided a password.
func (n Neo4jConfig) ResolvePassword() string {
	if n.Password != "" {
		return n.Password
	}
	return os.Getenv("NEO4J_PASSWORD")
}

// JournalConfig enables the optional Postgres run journal.
type JournalConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LoaderConfig carries run defaults overridable per invocation.
type LoaderConfig struct {
	BatchRows    int `mapstructure:"batch_rows" yaml:"batch_rows"`
	PreviewLimit int `mapstructure:"preview_limit" yaml:"preview_limit"`
	CleanupChunk int `mapstructure:"cleanup_chunk" yaml:"cleanup_chunk"`
}

// Defaults registers the baseline values with viper.
func Defaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "lexigraph")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("loader.batch_rows", 10000)
	v.SetDefault("loader.preview_limit", 50)
	v.SetDefault("loader.cleanup_chunk", 20000)
}

// Load unmarshals the effective viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
