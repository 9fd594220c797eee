package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and calls fn with the new,
// defaulted and validated config. Editors often replace files instead of
// writing them, so the parent directory is watched. Invalid files are
// logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, log zerolog.Logger, fn func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config watch %s: %w", target, err)
	}
	log.Info().Str("path", target).Msg("watching config")

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watch error")
		case <-reload:
			reload = nil
			cfg, err := Load(target)
			if err == nil {
				err = cfg.ApplyEnv()
			}
			if err != nil {
				log.Warn().Err(err).Str("path", target).Msg("config reload skipped")
				continue
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				log.Warn().Err(err).Str("path", target).Msg("config reload rejected")
				continue
			}
			log.Info().Str("path", target).Msg("config reloaded")
			fn(cfg)
		}
	}
}
