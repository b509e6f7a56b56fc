// Package config provides runtime configuration values for the client.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs for the transport, the query cache and
// the re-fetch workers.
type Config struct {
	APIBaseURL              string
	HTTPTimeout             time.Duration
	ShutdownTimeout         time.Duration
	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int
	KeepUnusedFor           time.Duration
	RedirectDelay           time.Duration
	LogLevel                string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		APIBaseURL:              strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8000"), "/"),
		HTTPTimeout:             durenvms("HTTP_TIMEOUT_MS", 10000),
		ShutdownTimeout:         durenvs("SHUTDOWN_TIMEOUT", 15),
		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 8),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 1000),
		KeepUnusedFor:           durenvs("CACHE_KEEP_UNUSED_SEC", 60),
		RedirectDelay:           durenvms("REDIRECT_DELAY_MS", 1500),
		LogLevel:                strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
}
