package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"eodd/internal/events"
	"eodd/pkg/types"
)

func TestEncodeEvent(t *testing.T) {
	e := events.NewLoginResult(false, "ash")
	e.Seq = 12
	e.Time = time.Unix(1700000000, 0).UTC()

	b, err := encodeEvent(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ce := cloudevents.NewEvent()
	if err := json.Unmarshal(b, &ce); err != nil {
		t.Fatalf("decode cloudevent: %v", err)
	}
	if ce.ID() != "12" || ce.Source() != EventSource || ce.Type() != "eod.login_result" {
		t.Fatalf("unexpected attributes: %s", ce.String())
	}
	if !ce.Time().Equal(e.Time) {
		t.Fatalf("time=%v want %v", ce.Time(), e.Time)
	}
	var data types.EventData
	if err := ce.DataAs(&data); err != nil {
		t.Fatalf("data: %v", err)
	}
	if data.Success == nil || *data.Success || data.Username != "ash" || data.Seq != 12 {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestEventsStream_DeliversAndUnbinds(t *testing.T) {
	svc := newMockService()
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%s", ct)
	}
	if m := svc.currentMode(); m != "bound" {
		t.Fatalf("stream must bind the worker, mode=%s", m)
	}

	obs := svc.observer()
	if obs == nil {
		t.Fatalf("no observer bound")
	}
	for i := 1; i <= 2; i++ {
		e := events.NewBugSpawned(i)
		e.Seq = uint64(i)
		e.Time = time.Now()
		obs.Observe(e)
	}

	sc := bufio.NewScanner(resp.Body)
	for i := 1; i <= 2; i++ {
		if !sc.Scan() {
			t.Fatalf("stream ended early: %v", sc.Err())
		}
		ce := cloudevents.NewEvent()
		if err := json.Unmarshal(sc.Bytes(), &ce); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		var data types.EventData
		if err := ce.DataAs(&data); err != nil {
			t.Fatalf("data: %v", err)
		}
		if ce.Type() != "eod.bug_spawned" || data.Count != i {
			t.Fatalf("line %d: type=%s data=%+v", i, ce.Type(), data)
		}
	}

	resp.Body.Close()
	select {
	case <-svc.unbound:
	case <-time.After(2 * time.Second):
		t.Fatalf("observer not unbound after disconnect")
	}
}

func TestEventsStream_Timeout(t *testing.T) {
	SetStreamTimeout(50 * time.Millisecond)
	defer SetStreamTimeout(0)

	svc := newMockService()
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	select {
	case <-svc.unbound:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after timeout")
	}
}
