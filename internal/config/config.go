package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yegors/runway-redeclaration/internal/model"
)

// Config holds the application configuration
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
	Storage       StorageConfig       `toml:"storage"`
	Redeclaration RedeclarationConfig `toml:"redeclaration"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr               string   `toml:"addr"`
	ReadTimeout        Duration `toml:"read_timeout"`
	WriteTimeout       Duration `toml:"write_timeout"`
	ShutdownTimeout    Duration `toml:"shutdown_timeout"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Storage backends
const (
	BackendXML    = "xml"
	BackendSQLite = "sqlite"
)

// StorageConfig selects where airports are persisted
type StorageConfig struct {
	Backend    string `toml:"backend"`
	Directory  string `toml:"directory"`
	SQLitePath string `toml:"sqlite_path"`
}

// RedeclarationConfig holds the regulatory constants applied to every runway
type RedeclarationConfig struct {
	RESA                 float64 `toml:"resa"`
	SlopeValue           float64 `toml:"slope_value"`
	NewStripEnd          float64 `toml:"new_strip_end"`
	EngineBlastAllowance float64 `toml:"engine_blast_allowance"`
}

// Constants converts the section into the model's constant set
func (c RedeclarationConfig) Constants() model.Constants {
	return model.Constants{
		RESA:                 c.RESA,
		SlopeValue:           c.SlopeValue,
		NewStripEnd:          c.NewStripEnd,
		EngineBlastAllowance: c.EngineBlastAllowance,
	}
}

// Duration wraps time.Duration so it can be written as "10s" in TOML
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	c := model.DefaultConstants()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Backend:    BackendXML,
			Directory:  "data/airports",
			SQLitePath: "data/redeclare.db",
		},
		Redeclaration: RedeclarationConfig{
			RESA:                 c.RESA,
			SlopeValue:           c.SlopeValue,
			NewStripEnd:          c.NewStripEnd,
			EngineBlastAllowance: c.EngineBlastAllowance,
		},
	}
}

// Load reads the configuration from path on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes the configuration as TOML to path
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of json, console", c.Logging.Format))
	}

	switch c.Storage.Backend {
	case BackendXML:
		if c.Storage.Directory == "" {
			errs = append(errs, errors.New("storage.directory must be set for the xml backend"))
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path must be set for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of xml, sqlite", c.Storage.Backend))
	}

	r := c.Redeclaration
	for name, v := range map[string]float64{
		"resa":                   r.RESA,
		"slope_value":            r.SlopeValue,
		"new_strip_end":          r.NewStripEnd,
		"engine_blast_allowance": r.EngineBlastAllowance,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("redeclaration.%s must not be negative", name))
		}
	}
	if r.SlopeValue == 0 {
		errs = append(errs, errors.New("redeclaration.slope_value must be greater than 0"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
