// Package config loads node configuration from flags, BJD_* environment
// variables and an optional <home>/config/bjd.toml, in that precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "BJD"

	FlagHome      = "home"
	FlagABCIAddr  = "abci-addr"
	FlagTransport = "transport"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"

	DefaultHome      = ".bjd"
	DefaultABCIAddr  = "tcp://127.0.0.1:26658"
	DefaultTransport = "socket"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "plain"
)

type Config struct {
	Home      string `mapstructure:"home"`
	ABCIAddr  string `mapstructure:"abci-addr"`
	Transport string `mapstructure:"transport"`
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

func DefaultConfig() Config {
	return Config{
		Home:      DefaultHome,
		ABCIAddr:  DefaultABCIAddr,
		Transport: DefaultTransport,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// NewViper returns a viper instance with defaults and env binding set up.
// Callers bind their flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault(FlagHome, def.Home)
	v.SetDefault(FlagABCIAddr, def.ABCIAddr)
	v.SetDefault(FlagTransport, def.Transport)
	v.SetDefault(FlagLogLevel, def.LogLevel)
	v.SetDefault(FlagLogFormat, def.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// FilePath is the optional config file under home.
func FilePath(home string) string {
	return filepath.Join(home, "config", "bjd.toml")
}

// Load merges the config file (if present) into v and returns the validated
// result.
func Load(v *viper.Viper) (Config, error) {
	path := FilePath(v.GetString(FlagHome))
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Home) == "" {
		return fmt.Errorf("config: home must be set")
	}
	if c.ABCIAddr == "" {
		return fmt.Errorf("config: abci-addr must be set")
	}
	switch c.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("config: transport must be socket or grpc, got %q", c.Transport)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log-level: %w", err)
	}
	switch c.LogFormat {
	case "plain", "json":
	default:
		return fmt.Errorf("config: log-format must be plain or json, got %q", c.LogFormat)
	}
	return nil
}

// DataDir holds the application database.
func (c Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// NewLogger builds the node logger writing to w.
func (c Config) NewLogger(w io.Writer) (log.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := []log.Option{log.LevelOption(level)}
	if c.LogFormat == "json" {
		opts = append(opts, log.OutputJSONOption())
	} else {
		opts = append(opts, log.ColorOption(false))
	}
	return log.NewLogger(w, opts...), nil
}
