package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	TickInterval     Duration `json:"tick_interval" yaml:"tick_interval" toml:"tick_interval"`
	SpawnProbability float64  `json:"spawn_probability" yaml:"spawn_probability" toml:"spawn_probability"`
	NotifyEvery      int      `json:"notify_every" yaml:"notify_every" toml:"notify_every"`
	NotifyCooldown   Duration `json:"notify_cooldown" yaml:"notify_cooldown" toml:"notify_cooldown"`
	ReminderInterval Duration `json:"reminder_interval" yaml:"reminder_interval" toml:"reminder_interval"`
	ReminderCron     string   `json:"reminder_cron" yaml:"reminder_cron" toml:"reminder_cron"`

	WeatherURL      string   `json:"weather_url" yaml:"weather_url" toml:"weather_url"`
	WeatherInterval Duration `json:"weather_interval" yaml:"weather_interval" toml:"weather_interval"`
	WeatherTimeout  Duration `json:"weather_timeout" yaml:"weather_timeout" toml:"weather_timeout"`
	WeatherFallback string   `json:"weather_fallback" yaml:"weather_fallback" toml:"weather_fallback"`

	QueueCapacity int      `json:"queue_capacity" yaml:"queue_capacity" toml:"queue_capacity"`
	QueueWorkers  int      `json:"queue_workers" yaml:"queue_workers" toml:"queue_workers"`
	LoginDelay    Duration `json:"login_delay" yaml:"login_delay" toml:"login_delay"`
	PrefsPath     string   `json:"prefs_path" yaml:"prefs_path" toml:"prefs_path"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Encode writes cfg in the given format ("yaml", "json" or "toml").
func Encode(w io.Writer, cfg Config, format string) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		b, err = yaml.Marshal(cfg)
	case "json":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(cfg)
		b = buf.Bytes()
	case "toml":
		b, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format: %s", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
