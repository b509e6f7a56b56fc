package config

import (
	"testing"
	"time"
)

var envKeys = []string{
	"API_BASE_URL",
	"HTTP_TIMEOUT_MS",
	"SHUTDOWN_TIMEOUT",
	"WORKER_MIN",
	"WORKER_MAX",
	"WORKER_COUNT",
	"SCALE_INTERVAL_MS",
	"SCALE_UP_BACKLOG_PER_WORKER",
	"SCALE_DOWN_IDLE_TICKS",
	"QUEUE_HIGH_WATERMARK",
	"CACHE_KEEP_UNUSED_SEC",
	"REDIRECT_DELAY_MS",
	"LOG_LEVEL",
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	c := Load()
	if c.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("APIBaseURL default: %q", c.APIBaseURL)
	}
	if c.HTTPTimeout != 10*time.Second {
		t.Fatalf("HTTPTimeout default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.WorkerMin != 1 || c.WorkerMax != 4 || c.InitialWorkerCount != 1 {
		t.Fatalf("worker bounds default")
	}
	if c.ScaleInterval != 500*time.Millisecond {
		t.Fatalf("ScaleInterval default")
	}
	if c.ScaleUpBacklogPerWorker != 8 || c.ScaleDownIdleTicks != 6 {
		t.Fatalf("scale thresholds default")
	}
	if c.QueueHighWatermark != 1000 {
		t.Fatalf("high watermark default")
	}
	if c.KeepUnusedFor != 60*time.Second {
		t.Fatalf("KeepUnusedFor default")
	}
	if c.RedirectDelay != 1500*time.Millisecond {
		t.Fatalf("RedirectDelay default")
	}
	if c.LogLevel != "info" {
		t.Fatalf("LogLevel default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.internal:9000/")
	t.Setenv("HTTP_TIMEOUT_MS", "250")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("WORKER_MIN", "2")
	t.Setenv("WORKER_MAX", "3")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("SCALE_INTERVAL_MS", "250")
	t.Setenv("SCALE_UP_BACKLOG_PER_WORKER", "10")
	t.Setenv("SCALE_DOWN_IDLE_TICKS", "2")
	t.Setenv("QUEUE_HIGH_WATERMARK", "99")
	t.Setenv("CACHE_KEEP_UNUSED_SEC", "0")
	t.Setenv("REDIRECT_DELAY_MS", "10")
	t.Setenv("LOG_LEVEL", "DEBUG")
	c := Load()
	if c.APIBaseURL != "http://api.internal:9000" {
		t.Fatalf("APIBaseURL env: %q", c.APIBaseURL)
	}
	if c.HTTPTimeout != 250*time.Millisecond {
		t.Fatalf("HTTPTimeout env")
	}
	if c.ShutdownTimeout != 2*time.Second {
		t.Fatalf("ShutdownTimeout env")
	}
	if c.WorkerMin != 2 || c.WorkerMax != 3 || c.InitialWorkerCount != 2 {
		t.Fatalf("workers env")
	}
	if c.ScaleInterval != 250*time.Millisecond {
		t.Fatalf("ScaleInterval env")
	}
	if c.ScaleUpBacklogPerWorker != 10 || c.ScaleDownIdleTicks != 2 {
		t.Fatalf("scale thresholds env")
	}
	if c.QueueHighWatermark != 99 {
		t.Fatalf("high watermark env")
	}
	if c.KeepUnusedFor != 0 {
		t.Fatalf("KeepUnusedFor env")
	}
	if c.RedirectDelay != 10*time.Millisecond {
		t.Fatalf("RedirectDelay env")
	}
	if c.LogLevel != "debug" {
		t.Fatalf("LogLevel env")
	}
}

func TestLoadClampsWorkerMax(t *testing.T) {
	t.Setenv("WORKER_MIN", "5")
	t.Setenv("WORKER_MAX", "2")
	t.Setenv("WORKER_COUNT", "")
	c := Load()
	if c.WorkerMax != 5 {
		t.Fatalf("expected WorkerMax clamped to 5, got %d", c.WorkerMax)
	}
}
