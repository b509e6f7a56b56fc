// Package queue runs the cache's background fetches on a pool of workers
// that grows with the backlog.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/config"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
)

// Runner executes a scheduled fetch. *store.Store satisfies it.
type Runner interface {
	RunScheduled(ctx context.Context, key api.QueryKey)
}

// Manager coordinates workers processing queued jobs and scaling.
type Manager struct {
	cfg    config.Config
	q      *Queue
	r      Runner
	seq    Sequencer
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
	// wg tracks the broker, the scaler and every worker.
	wg sync.WaitGroup
}

// NewManager constructs a Manager with the given config, queue, and runner.
func NewManager(cfg config.Config, q *Queue, r Runner) *Manager {
	return &Manager{cfg: cfg, q: q, r: r}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.wg.Go(func() { m.q.broker(m.ctx, m.cfg.QueueHighWatermark) })
	m.addWorkers(m.cfg.InitialWorkerCount)
	m.wg.Go(m.scaler)
}

// Stop cancels background routines, stops workers and waits for them to
// return. A worker in the middle of a fetch finishes it first.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		m.wg.Go(func() { m.worker(wctx) })
	}
	obs.Logger.Info("workers scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers. A worker in the middle of a fetch
// finishes it first.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Info("workers scaled", "worker_count", len(m.workerCancels))
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.q.Out():
			m.r.RunScheduled(m.ctx, job.Key)
			m.q.MarkProcessed()
		}
	}
}

// Schedule queues a fetch of key. It reports false once intake is closed,
// in which case the caller runs the fetch itself.
func (m *Manager) Schedule(key api.QueryKey) bool {
	return m.q.Enqueue(Job{Key: key, Sequence: m.seq.Next()})
}

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new jobs are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future jobs.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// DrainUntil blocks until the queue is fully drained or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
