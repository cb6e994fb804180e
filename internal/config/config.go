// Package config loads metaedit settings from config.yaml, .env and
// METAEDIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "METAEDIT"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Codec    CodecConfig    `mapstructure:"codec"`
	Formats  []string       `mapstructure:"formats"`
	Learning LearningConfig `mapstructure:"learning"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	MaxBodyMB int    `mapstructure:"max_body_mb"`
}

// DatabaseConfig locates the usage database
type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CodecConfig selects and tunes the metadata codec
type CodecConfig struct {
	// Kind is auto, exiftool or native
	Kind            string `mapstructure:"kind"`
	ExifToolPath    string `mapstructure:"exiftool_path"`
	BackupOriginals bool   `mapstructure:"backup_originals"`
}

// LearningConfig tunes usage learning and retention
type LearningConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
	BatchWorkers  int `mapstructure:"batch_workers"`
}

// EditorConfig holds write policy
type EditorConfig struct {
	RejectInvalid bool `mapstructure:"reject_invalid"`
}

// LogConfig selects the slog level and handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5001")
	v.SetDefault("server.max_body_mb", 16)
	v.SetDefault("database.path", "data/metadata_editor.db")
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("codec.kind", "auto")
	v.SetDefault("codec.exiftool_path", "")
	v.SetDefault("codec.backup_originals", false)
	v.SetDefault("formats", []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"})
	v.SetDefault("learning.retention_days", 30)
	v.SetDefault("learning.batch_workers", 4)
	v.SetDefault("editor.reject_invalid", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An explicit path must exist; otherwise
// ./config.yaml is optional. A .env file in the working directory is loaded
// into the environment first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with
func (c *Config) Validate() error {
	switch c.Codec.Kind {
	case "auto", "exiftool", "native":
	default:
		return fmt.Errorf("codec.kind must be auto, exiftool or native, got %q", c.Codec.Kind)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.MaxBodyMB <= 0 {
		return fmt.Errorf("server.max_body_mb must be positive")
	}
	if c.Learning.BatchWorkers <= 0 {
		return fmt.Errorf("learning.batch_workers must be positive")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w in the configured format
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
