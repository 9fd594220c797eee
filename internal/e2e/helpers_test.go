package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"eodd/internal/feed"
	"eodd/internal/httpapi"
	"eodd/internal/kv"
	"eodd/internal/notify"
	"eodd/internal/scheduler"
	"eodd/internal/service"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type stack struct {
	srv   *httptest.Server
	svc   *service.Service
	clock *scheduler.FakeClock
	shade *notify.MemorySink
}

// newStack wires a real service behind the HTTP mux. Timers only fire on
// clock.Advance; every Rand draw spawns a bug.
func newStack(t *testing.T, mutate func(*service.Config)) *stack {
	t.Helper()
	clock := scheduler.NewFakeClock(t0)
	shade := notify.NewMemorySink()
	cfg := service.Config{
		TickInterval:     2 * time.Second,
		SpawnProbability: 1,
		NotifyCooldown:   -1,
		QueueCapacity:    4,
		QueueWorkers:     1,
		Store:            kv.NewMemory(),
		Sink:             shade,
		Clock:            clock,
		Rand:             func() float64 { return 0 },
		Logger:           zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := service.New(cfg)
	srv := httptest.NewServer(httpapi.NewMux(svc, httpapi.WithNotifications(shade)))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return &stack{srv: srv, svc: svc, clock: clock, shade: shade}
}

// weatherFeed returns a feed backed by an upstream the test controls.
func weatherFeed(upstream *httptest.Server) *feed.Feed {
	return feed.New(feed.Config{URL: upstream.URL, Logger: zerolog.Nop()})
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func httpDelete(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

// streamedEvent is the subset of a structured CloudEvent the tests read.
type streamedEvent struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Type   string `json:"type"`
	Data   struct {
		Kind      string `json:"kind"`
		Seq       uint64 `json:"seq"`
		Count     int    `json:"count"`
		Success   *bool  `json:"success"`
		Username  string `json:"username"`
		Text      string `json:"text"`
		Freshness string `json:"freshness"`
	} `json:"data"`
}

type eventStream struct {
	t      *testing.T
	resp   *http.Response
	lines  *bufio.Scanner
	cancel context.CancelFunc
}

// openEvents subscribes to /events. The observer is bound once the
// response headers have arrived.
func openEvents(t *testing.T, base string) *eventStream {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/events", nil)
	if err != nil {
		cancel()
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("open events: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		t.Fatalf("events status=%d body=%s", resp.StatusCode, body)
	}
	es := &eventStream{t: t, resp: resp, lines: bufio.NewScanner(resp.Body), cancel: cancel}
	t.Cleanup(es.Close)
	return es
}

func (es *eventStream) Next() streamedEvent {
	es.t.Helper()
	if !es.lines.Scan() {
		es.t.Fatalf("event stream ended: %v", es.lines.Err())
	}
	var ev streamedEvent
	if err := json.Unmarshal(es.lines.Bytes(), &ev); err != nil {
		es.t.Fatalf("decode event %q: %v", es.lines.Text(), err)
	}
	return ev
}

func (es *eventStream) Close() {
	es.cancel()
	_ = es.resp.Body.Close()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
