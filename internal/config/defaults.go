package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"eodd/internal/scheduler"
)

// Defaults for unset fields.
const (
	DefaultAddr             = ":8080"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultTickInterval     = 2 * time.Second
	DefaultSpawnProbability = 0.5
	DefaultNotifyCooldown   = 30 * time.Second
	DefaultReminderInterval = 2 * time.Hour
	DefaultWeatherTimeout   = 5 * time.Second
	DefaultQueueCapacity    = 32
	DefaultQueueWorkers     = 1
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EODD_"

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.TickInterval <= 0 {
		c.TickInterval = Duration(DefaultTickInterval)
	}
	if c.SpawnProbability == 0 {
		c.SpawnProbability = DefaultSpawnProbability
	}
	if c.NotifyCooldown == 0 {
		c.NotifyCooldown = Duration(DefaultNotifyCooldown)
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = Duration(DefaultReminderInterval)
	}
	if c.WeatherTimeout <= 0 {
		c.WeatherTimeout = Duration(DefaultWeatherTimeout)
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.QueueWorkers <= 0 {
		c.QueueWorkers = DefaultQueueWorkers
	}
}

// ApplyEnv overrides fields from EODD_* variables, e.g. EODD_ADDR or
// EODD_TICK_INTERVAL. Unset variables leave the field alone.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("ADDR", &c.Addr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	dur("TICK_INTERVAL", &c.TickInterval)
	if v, ok := lookup("SPAWN_PROBABILITY"); ok {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSPAWN_PROBABILITY: %w", EnvPrefix, err))
		} else {
			c.SpawnProbability = p
		}
	}
	num("NOTIFY_EVERY", &c.NotifyEvery)
	dur("NOTIFY_COOLDOWN", &c.NotifyCooldown)
	dur("REMINDER_INTERVAL", &c.ReminderInterval)
	str("REMINDER_CRON", &c.ReminderCron)
	str("WEATHER_URL", &c.WeatherURL)
	dur("WEATHER_INTERVAL", &c.WeatherInterval)
	dur("WEATHER_TIMEOUT", &c.WeatherTimeout)
	str("WEATHER_FALLBACK", &c.WeatherFallback)
	num("QUEUE_CAPACITY", &c.QueueCapacity)
	num("QUEUE_WORKERS", &c.QueueWorkers)
	dur("LOGIN_DELAY", &c.LoginDelay)
	str("PREFS_PATH", &c.PrefsPath)
	if v, ok := lookup("CORS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCORS_ENABLED: %w", EnvPrefix, err))
		} else {
			c.CORSEnabled = b
		}
	}
	if v, ok := lookup("CORS_ORIGINS"); ok {
		c.CORSOrigins = SplitCSV(v)
	}
	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.SpawnProbability < 0 || c.SpawnProbability > 1 {
		errs = append(errs, fmt.Errorf("spawn_probability must be within [0,1], got %v", c.SpawnProbability))
	}
	if c.NotifyEvery < 0 {
		errs = append(errs, fmt.Errorf("notify_every must not be negative, got %d", c.NotifyEvery))
	}
	if c.WeatherInterval < 0 {
		errs = append(errs, fmt.Errorf("weather_interval must not be negative, got %s", c.WeatherInterval.D()))
	}
	if c.LoginDelay < 0 {
		errs = append(errs, fmt.Errorf("login_delay must not be negative, got %s", c.LoginDelay.D()))
	}
	if c.ReminderCron != "" {
		if _, err := scheduler.ParseSchedule(c.ReminderCron); err != nil {
			errs = append(errs, fmt.Errorf("reminder_cron: %w", err))
		}
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping
// empty items.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
