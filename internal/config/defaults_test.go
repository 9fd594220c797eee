package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Addr != DefaultAddr || c.TickInterval.D() != DefaultTickInterval || c.SpawnProbability != DefaultSpawnProbability {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.NotifyCooldown.D() != DefaultNotifyCooldown || c.QueueCapacity != DefaultQueueCapacity || c.QueueWorkers != DefaultQueueWorkers {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.WeatherInterval != 0 {
		t.Fatalf("weather refresh must stay disabled by default")
	}

	c = Config{Addr: ":1", NotifyCooldown: Duration(-1)}
	c.ApplyDefaults()
	if c.Addr != ":1" || c.NotifyCooldown != -1 {
		t.Fatalf("set fields must be kept: %+v", c)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EODD_ADDR", ":7777")
	t.Setenv("EODD_TICK_INTERVAL", "250ms")
	t.Setenv("EODD_SPAWN_PROBABILITY", "0.75")
	t.Setenv("EODD_QUEUE_WORKERS", "3")
	t.Setenv("EODD_CORS_ENABLED", "true")
	t.Setenv("EODD_CORS_ORIGINS", " http://a , ,http://b ")

	c := Config{Addr: ":1"}
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Addr != ":7777" || c.TickInterval.D() != 250*time.Millisecond || c.SpawnProbability != 0.75 || c.QueueWorkers != 3 || !c.CORSEnabled {
		t.Fatalf("unexpected cfg: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[0] != "http://a" {
		t.Fatalf("unexpected origins: %v", c.CORSOrigins)
	}
}

func TestApplyEnv_Errors(t *testing.T) {
	t.Setenv("EODD_QUEUE_CAPACITY", "lots")
	t.Setenv("EODD_LOGIN_DELAY", "later")
	var c Config
	if err := c.ApplyEnv(); err == nil {
		t.Fatalf("expected parse errors")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"zero", Config{}, true},
		{"probability", Config{SpawnProbability: 1.5}, false},
		{"every", Config{NotifyEvery: -1}, false},
		{"cron", Config{ReminderCron: "every tuesday"}, false},
		{"good cron", Config{ReminderCron: "0 */2 * * *"}, true},
		{"format", Config{LogFormat: "xml"}, false},
		{"delay", Config{LoginDelay: Duration(-time.Second)}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.ok {
			t.Fatalf("%s: err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}
