package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
)

// Job asks a worker to run the scheduled fetch of Key.
type Job struct {
	Key      api.QueryKey
	Sequence uint64
}

// Queue is a buffered job queue with a background broker. A key that is
// already waiting in the backlog is not queued twice.
type Queue struct {
	mu           sync.Mutex
	backlog      []Job
	waiting      map[api.QueryKey]struct{}
	notify       chan struct{}
	out          chan Job
	shuttingDown atomic.Bool

	enqueued  atomic.Uint64
	coalesced atomic.Uint64
	processed atomic.Uint64
}

// New creates a Queue with a buffered output channel.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		waiting: make(map[api.QueryKey]struct{}),
		notify:  make(chan struct{}, 1),
		out:     make(chan Job, outBuffer),
	}
}

// Start runs the broker loop.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		if highWatermark > 0 {
			if sz := q.BacklogSize(); sz > highWatermark {
				obs.Logger.Warn("queue backlog exceeds high watermark", "backlog_size", sz, "high_watermark", highWatermark)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains backlog into the output buffer.
func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		job := q.backlog[0]
		q.backlog = q.backlog[1:]
		delete(q.waiting, job.Key)
		q.out <- job
	}
}

// Enqueue appends a job to the backlog and notifies the broker. It returns
// false once intake is closed. A job whose key is already in the backlog is
// accepted but dropped.
func (q *Queue) Enqueue(job Job) bool {
	if q.shuttingDown.Load() {
		return false
	}
	q.mu.Lock()
	if _, dup := q.waiting[job.Key]; dup {
		q.mu.Unlock()
		q.coalesced.Add(1)
		return true
	}
	q.enqueued.Add(1)
	q.waiting[job.Key] = struct{}{}
	q.backlog = append(q.backlog, job)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Out exposes the output channel of jobs.
func (q *Queue) Out() <-chan Job { return q.out }

// BacklogSize returns the number of enqueued-but-not-yet-output jobs.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus buffered output items.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// MarkProcessed increases the processed counter.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Coalesced returns how many jobs were dropped as duplicates.
func (q *Queue) Coalesced() uint64 { return q.coalesced.Load() }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
