package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"eodd/internal/config"
	"eodd/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	addr  string
	boot  bool
	watch bool
}

func newServeCmd(opts *Options) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the worker and its HTTP API",
		Example: "  eodd serve --config eodd.yaml --watch\n  EODD_TICK_INTERVAL=500ms eodd serve --addr :9090",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			if so.addr != "" {
				cfg.Addr = so.addr
			}
			if so.watch && opts.ConfigPath == "" {
				return errors.New("--watch requires --config")
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Addr, err)
			}
			return serve(ctx, cfg, opts.ConfigPath, so, ln, log)
		},
	}
	cmd.Flags().StringVar(&so.addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config)")
	cmd.Flags().BoolVar(&so.boot, "boot", true, "Signal boot completion on start, arming the charge reminder")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "Reload tunables when the config file changes")
	return cmd
}

// serve runs the worker and HTTP server on ln until ctx is done. The
// worker is stopped before the server drains so open event streams end.
func serve(ctx context.Context, cfg config.Config, cfgPath string, so serveOptions, ln net.Listener, log zerolog.Logger) error {
	a, err := newApp(cfg, log)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	srv := &http.Server{
		Handler:           httpapi.NewMux(a.svc, httpapi.WithNotifications(a.shade)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if so.boot {
		if err := a.svc.OnBootCompleted(); err != nil {
			ln.Close()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("eodd listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if _, err := a.svc.OnApplicationExit(); err != nil {
			log.Warn().Err(err).Msg("stop worker")
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Info().Msg("server stopped")
		return nil
	})
	if so.watch {
		g.Go(func() error {
			return config.Watch(gctx, cfgPath, log.With().Str("component", "config").Logger(), func(c config.Config) {
				a.svc.UpdateTunables(tunables(c))
			})
		})
	}
	return g.Wait()
}
