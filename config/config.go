// Package config reads vendsim settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sarchlab/vendsim/logging"
	"github.com/sarchlab/vendsim/timing"
	"github.com/sarchlab/vendsim/vending"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "VENDSIM_"

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when parsed values are out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the settings shared by every vendsim command.
type Config struct {
	DispenseDelay time.Duration `env:"DISPENSE_DELAY" envDefault:"1s"`
	ChangeDelay   time.Duration `env:"CHANGE_DELAY" envDefault:"2s"`
	TickFreqHz    float64       `env:"TICK_FREQ_HZ" envDefault:"1000"`
	CatalogFile   string        `env:"CATALOG_FILE"`
	RecordPath    string        `env:"RECORD_PATH"`
	MonitorPort   int           `env:"MONITOR_PORT" envDefault:"0"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the given .env files, or ./.env when none are given, and then
// parses the environment. A missing ./.env is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errors.Join(ErrParsingConfig, err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	return parse(env.Options{})
}

// LoadFrom parses environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	opts.Prefix = EnvPrefix

	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	switch {
	case c.DispenseDelay < 0:
		return fmt.Errorf("%w: dispense delay %s is negative", ErrInvalidConfig, c.DispenseDelay)
	case c.ChangeDelay < 0:
		return fmt.Errorf("%w: change delay %s is negative", ErrInvalidConfig, c.ChangeDelay)
	case !(c.TickFreqHz > 0):
		return fmt.Errorf("%w: tick frequency %v must be positive", ErrInvalidConfig, c.TickFreqHz)
	case c.MonitorPort < 0 || c.MonitorPort > 65535:
		return fmt.Errorf("%w: monitor port %d is out of range", ErrInvalidConfig, c.MonitorPort)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// Freq returns the engine frequency.
func (c Config) Freq() timing.Freq {
	return timing.Freq(c.TickFreqHz) * timing.Hz
}

// Logger builds the logger described by LogLevel and LogFormat.
func (c Config) Logger(out io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}

	return logging.New(
		logging.WithLevel(level),
		logging.WithFormat(format),
		logging.WithOutput(out),
	), nil
}

// Catalog loads CatalogFile, or returns the reference catalog when it is
// empty.
func (c Config) Catalog() (vending.Catalog, error) {
	if c.CatalogFile == "" {
		return vending.ReferenceCatalog(), nil
	}

	return vending.LoadCatalogFile(c.CatalogFile)
}

// Builder returns a machine builder on engine using these settings.
func (c Config) Builder(
	engine timing.EventScheduler,
	catalog vending.Catalog,
) vending.Builder {
	return vending.MakeBuilder().
		WithEngine(engine).
		WithFreq(c.Freq()).
		WithCatalog(catalog).
		WithDispenseDelay(c.DispenseDelay).
		WithChangeDelay(c.ChangeDelay)
}
