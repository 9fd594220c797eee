package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"eodd/internal/config"
	"eodd/internal/feed"
	"eodd/internal/kv"
	"eodd/internal/notify"
	"eodd/internal/service"
)

// app holds the wired worker and the resources it owns.
type app struct {
	svc   *service.Service
	shade *notify.MemorySink
	store kv.Store
	db    *kv.SQLite
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	a := &app{shade: notify.NewMemorySink()}
	if cfg.PrefsPath != "" {
		db, err := kv.OpenSQLite(cfg.PrefsPath, log)
		if err != nil {
			return nil, fmt.Errorf("open prefs: %w", err)
		}
		a.db, a.store = db, db
	} else {
		a.store = kv.NewMemory()
	}

	wx := feed.New(feed.Config{
		URL:       cfg.WeatherURL,
		Requester: feed.HTTPRequester{UserAgent: "eodd/" + Version},
		Fallback:  cfg.WeatherFallback,
		Logger:    log,
	})
	a.svc = service.New(serviceConfig(cfg, service.Config{
		Store:   a.store,
		Sink:    notify.MultiSink{notify.LogSink{Log: log.With().Str("component", "notify").Logger()}, a.shade},
		Weather: wx,
		Logger:  log,
	}))
	return a, nil
}

// serviceConfig copies the tunables of cfg into base.
func serviceConfig(cfg config.Config, base service.Config) service.Config {
	base.TickInterval = cfg.TickInterval.D()
	base.SpawnProbability = cfg.SpawnProbability
	base.NotifyEvery = cfg.NotifyEvery
	base.NotifyCooldown = cfg.NotifyCooldown.D()
	base.ReminderInterval = cfg.ReminderInterval.D()
	base.ReminderCron = cfg.ReminderCron
	base.WeatherInterval = cfg.WeatherInterval.D()
	base.WeatherTimeout = cfg.WeatherTimeout.D()
	base.LoginDelay = cfg.LoginDelay.D()
	base.QueueCapacity = cfg.QueueCapacity
	base.QueueWorkers = cfg.QueueWorkers
	return base
}

func tunables(cfg config.Config) service.Tunables {
	return service.Tunables{
		SpawnProbability: cfg.SpawnProbability,
		NotifyEvery:      cfg.NotifyEvery,
		NotifyCooldown:   cfg.NotifyCooldown.D(),
	}
}

func (a *app) Close() error {
	a.svc.Close()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
