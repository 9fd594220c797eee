package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eodd/internal/broadcast"
	"eodd/internal/feed"
	"eodd/internal/lifecycle"
	"eodd/internal/notify"
	"eodd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Start() (lifecycle.Mode, error)
	Stop() (lifecycle.Mode, error)
	Promote() (lifecycle.Mode, error)
	Bind(o broadcast.Observer) (lifecycle.Mode, error)
	Unbind(o broadcast.Observer) (lifecycle.Mode, error)
	Snapshot() types.Snapshot
	Status() types.StatusResponse
	Login(username string) (string, error)
	Task(id string) (types.TaskStatus, bool)
	CancelTask(id string) error
	RefreshWeather(ctx context.Context) feed.Outcome
	OnBootCompleted() error
	OnApplicationExit() (bool, error)
	Ready() bool
}

// NotificationLister exposes the visible notifications. *notify.MemorySink
// satisfies it.
type NotificationLister interface {
	Active() []notify.Record
}

// Option configures NewMux.
type Option func(*muxOptions)

type muxOptions struct {
	notifications NotificationLister
}

// WithNotifications serves GET /notifications from l.
func WithNotifications(l NotificationLister) Option {
	return func(o *muxOptions) { o.notifications = l }
}

// NewMux builds the HTTP API around svc.
func NewMux(svc Service, opts ...Option) http.Handler {
	var mo muxOptions
	for _, opt := range opts {
		opt(&mo)
	}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer, metrics
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: defaultIfEmpty(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: defaultIfEmpty(corsAllowedMethods, []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: defaultIfEmpty(corsAllowedHeaders, []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"}),
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/service", func(r chi.Router) {
		r.Post("/start", modeHandler(svc.Start))
		r.Post("/stop", modeHandler(svc.Stop))
		r.Post("/promote", modeHandler(svc.Promote))
	})

	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Snapshot())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/events", eventsHandler(svc))

	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		if !requireJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id, err := svc.Login(req.Username)
		if err != nil {
			status := writeError(w, err)
			logRequest(r, lvl, "login", status, start, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.LoginResponse{TaskID: id})
		logRequest(r, lvl, "login", http.StatusAccepted, start, nil)
	})

	r.Route("/tasks/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ts, ok := svc.Task(chi.URLParam(r, "id"))
			if !ok {
				writeJSONError(w, http.StatusNotFound, "task not found")
				return
			}
			writeJSON(w, http.StatusOK, ts)
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.CancelTask(chi.URLParam(r, "id")); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.Post("/weather/refresh", func(w http.ResponseWriter, r *http.Request) {
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		out := svc.RefreshWeather(ctx)
		resp := types.WeatherResponse{Text: out.Value, Freshness: string(out.Freshness)}
		if !out.FetchedAt.IsZero() {
			resp.FetchedAtUnix = out.FetchedAt.Unix()
		}
		if out.Err != nil {
			resp.Error = out.Err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
		list := []types.Notification{}
		if mo.notifications != nil {
			for _, rec := range mo.notifications.Active() {
				list = append(list, types.Notification{
					Title:         rec.Title,
					Body:          rec.Body,
					ChannelID:     rec.ChannelID,
					DedupKey:      rec.DedupKey,
					Ongoing:       rec.Ongoing,
					Updates:       rec.Updates,
					UpdatedAtUnix: rec.UpdatedAt.Unix(),
				})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
	})

	r.Route("/signals", func(r chi.Router) {
		r.Post("/boot", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.OnBootCompleted(); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/exit", func(w http.ResponseWriter, r *http.Request) {
			if _, err := svc.OnApplicationExit(); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, types.ModeResponse{Mode: string(lifecycle.Stopped)})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stopped"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func modeHandler(fn func() (lifecycle.Mode, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := fn()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ModeResponse{Mode: string(mode)})
	}
}

// eventsHandler binds an observer for the lifetime of the connection and
// streams its events as NDJSON CloudEvents.
func eventsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		start := time.Now()
		lvl := requestLogLevel(r)

		obs := broadcast.NewChanObserver(eventBuffer)
		if _, err := svc.Bind(obs); err != nil {
			status := writeError(w, err)
			logRequest(r, lvl, "events", status, start, err)
			return
		}
		openStreams.Inc()
		defer func() {
			_, _ = svc.Unbind(obs)
			obs.Close()
			openStreams.Dec()
			logRequest(r, lvl, "events", http.StatusOK, start, nil)
		}()

		ctx, cancel := streamContext(r)
		defer cancel()

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		// Optional logging of streamed lines
		writer := io.Writer(w)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-obs.C():
				line, err := encodeEvent(e)
				if err != nil {
					logf(LevelError, "encode event seq=%d: %v", e.Seq, err)
					continue
				}
				if _, err := writer.Write(append(line, '\n')); err != nil {
					return
				}
				flusher.Flush()
				streamedTotal.WithLabelValues(string(e.Kind)).Inc()
			}
		}
	}
}

func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

func defaultIfEmpty(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
