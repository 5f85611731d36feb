// Package board turns a TOML board description into a populated device
// registry.
package board

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidConfig = errors.New("invalid board config")

const (
	DriverTTY     = "tty"
	DriverRFC2217 = "rfc2217"
	DriverDirect  = "direct"

	defaultBaud    = 115200
	defaultTimeout = 2 * time.Second
)

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type SerialConfig struct {
	Name    string   `toml:"name"`
	Driver  string   `toml:"driver"`
	Path    string   `toml:"path"`
	Address string   `toml:"address"`
	Baud    int      `toml:"baud"`
	Timeout Duration `toml:"timeout"`
}

type Config struct {
	LogLevel    string         `toml:"log_level"`
	Development bool           `toml:"development"`
	Serial      []SerialConfig `toml:"serial"`
}

// Load reads and validates a board file. Missing baud rates and timeouts
// are filled with defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse is Load for in-memory documents.
func Parse(doc string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(doc, &cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if _, err := zapcore.ParseLevel(c.level()); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	seen := make(map[string]bool, len(c.Serial))
	for i := range c.Serial {
		s := &c.Serial[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
		if s.Name == "" {
			return fmt.Errorf("%w: serial[%d] has no name", ErrInvalidConfig, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate serial %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
		switch s.Driver {
		case DriverTTY:
			if s.Path == "" {
				return fmt.Errorf("%w: serial %q needs a path", ErrInvalidConfig, s.Name)
			}
		case DriverRFC2217, DriverDirect:
			if s.Address == "" {
				return fmt.Errorf("%w: serial %q needs an address", ErrInvalidConfig, s.Name)
			}
		default:
			return fmt.Errorf("%w: serial %q has unknown driver %q", ErrInvalidConfig, s.Name, s.Driver)
		}
		if s.Baud < 0 {
			return fmt.Errorf("%w: serial %q baud %d", ErrInvalidConfig, s.Name, s.Baud)
		}
		if s.Baud == 0 {
			s.Baud = defaultBaud
		}
		if s.Timeout.Duration <= 0 {
			s.Timeout.Duration = defaultTimeout
		}
	}
	return nil
}

func (c *Config) level() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// Logger builds the sugared logger described by the config.
func (c *Config) Logger() (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(c.level())
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
