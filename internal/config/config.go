package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// RenderLimit caps how many lines a single group may render per window.
type RenderLimit struct {
	// Window is the sliding window length.
	Window time.Duration `yaml:"window"`
	// Count is the maximum number of lines per window.
	Count int `yaml:"count"`
}

// Enabled reports whether the limit should be applied.
func (l RenderLimit) Enabled() bool {
	return l.Window > 0 && l.Count > 0
}

// Config holds the runtime settings of the alarm pool.
type Config struct {
	// TimeUnit is the length of one interval "second".
	TimeUnit time.Duration `yaml:"time_unit"`
	// ScanInterval is the period of the group spawner.
	ScanInterval time.Duration `yaml:"scan_interval"`
	// ReapInterval is the period of the group reaper.
	ReapInterval time.Duration `yaml:"reap_interval"`
	// IdleInterval caps the sleep of a display worker between cycles.
	IdleInterval time.Duration `yaml:"idle_interval"`
	// MessageLimit is the maximum message length in characters.
	MessageLimit int `yaml:"message_limit"`
	// LogLevel is the minimum level of diagnostic logs.
	LogLevel string `yaml:"log_level"`
	// MetricsAddress enables the Prometheus endpoint when non-empty.
	MetricsAddress string `yaml:"metrics_address"`
	// Prompt is the interactive console prompt.
	Prompt string `yaml:"prompt"`
	// RenderLimit optionally caps per-group rendering.
	RenderLimit RenderLimit `yaml:"render_limit"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-groups-settings.yaml"

	// DefaultTimeUnit is the wall-clock length of one interval unit.
	DefaultTimeUnit = time.Second

	// DefaultScanInterval is the default period of the group spawner.
	DefaultScanInterval = time.Second

	// DefaultReapInterval is the default period of the group reaper.
	DefaultReapInterval = time.Second

	// DefaultIdleInterval is the default cap on a display worker sleep.
	DefaultIdleInterval = time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultPrompt is the interactive console prompt.
	DefaultPrompt = "Alarm> "

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeDuration is returned when a period is negative.
	errNegativeDuration = errors.New("duration must not be negative")
	// errUnknownLogLevel is returned for unparsable log levels.
	errUnknownLogLevel = errors.New("unknown log level")
	// errInvalidRenderLimit is returned when only half of the render limit is set.
	errInvalidRenderLimit = errors.New("render limit needs both window and count")
)

// Default returns settings with every field set to its default.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Validation of an empty config only fills defaults.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	usingDefault := path == "" || path == DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if usingDefault && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for unset fields.
//
//nolint:cyclop // One branch per field keeps the defaults readable.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	durations := map[string]*time.Duration{
		"time_unit":     &settings.TimeUnit,
		"scan_interval": &settings.ScanInterval,
		"reap_interval": &settings.ReapInterval,
		"idle_interval": &settings.IdleInterval,
	}
	for name, d := range durations {
		if *d < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeDuration)
		}
	}

	if settings.TimeUnit == 0 {
		settings.TimeUnit = DefaultTimeUnit
	}

	if settings.ScanInterval == 0 {
		settings.ScanInterval = DefaultScanInterval
	}

	if settings.ReapInterval == 0 {
		settings.ReapInterval = DefaultReapInterval
	}

	if settings.IdleInterval == 0 {
		settings.IdleInterval = DefaultIdleInterval
	}

	if settings.MessageLimit <= 0 {
		settings.MessageLimit = alarm.DefaultMessageLimit
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	if settings.Prompt == "" {
		settings.Prompt = DefaultPrompt
	}

	limit := settings.RenderLimit
	if (limit.Window > 0) != (limit.Count > 0) {
		return errInvalidRenderLimit
	}

	if settings.MetricsAddress == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(settings.MetricsAddress); err != nil {
		return fmt.Errorf("invalid metrics address: %w", err)
	}

	return nil
}
