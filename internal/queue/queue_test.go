package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/config"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
)

type countingRunner struct {
	delay time.Duration
	mu    sync.Mutex
	runs  map[api.QueryKey]int
}

func (c *countingRunner) RunScheduled(_ context.Context, key api.QueryKey) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runs == nil {
		c.runs = make(map[api.QueryKey]int)
	}
	c.runs[key]++
}

func (c *countingRunner) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.runs {
		n += v
	}
	return n
}

func TestMain(m *testing.M) {
	obs.InitLogger()
	os.Exit(m.Run())
}

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)
	for i := 0; i < 1000; i++ {
		if ok := q.Enqueue(Job{Key: api.NewQueryKey(api.OpGetProducts, i)}); !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if q.BacklogSize() == 0 {
		t.Fatalf("expected backlog > 0")
	}
}

func TestQueueCoalescesWaitingKeys(t *testing.T) {
	q := New(1)
	key := api.NewQueryKey(api.OpGetProducts, nil)
	for i := 0; i < 5; i++ {
		if !q.Enqueue(Job{Key: key}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	enq, _, backlog, _ := q.Metrics()
	if enq != 1 || backlog != 1 {
		t.Fatalf("expected one queued job, enq=%d backlog=%d", enq, backlog)
	}
	if q.Coalesced() != 4 {
		t.Fatalf("expected 4 coalesced, got %d", q.Coalesced())
	}

	q.flushOnce()
	if !q.Enqueue(Job{Key: key}) || q.BacklogSize() != 1 {
		t.Fatalf("expected key to be queued again once it left the backlog")
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	if !q.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	if q.Enqueue(Job{Key: api.NewQueryKey(api.OpGetProducts, nil)}) {
		t.Fatalf("expected enqueue false when shutting down")
	}
}

func TestManagerDrain(t *testing.T) {
	cfg := config.Load()
	r := &countingRunner{}
	mgr := NewManager(cfg, New(16), r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()
	for i := 0; i < 100; i++ {
		_ = mgr.Schedule(api.NewQueryKey(api.OpGetProducts, i))
	}
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelDrain()
	if ok := mgr.DrainUntil(ctxDrain); !ok {
		t.Fatalf("expected drain true")
	}
	if got := r.total(); got != 100 {
		t.Fatalf("expected 100 runs, got %d", got)
	}
}

type fetchOnce struct{}

func (fetchOnce) Fetch(context.Context, api.QueryKey) (any, error) { return "products", nil }

func TestManagerRunsStoreFetches(t *testing.T) {
	cfg := config.Load()
	st := store.New(fetchOnce{})
	defer st.Close()
	mgr := NewManager(cfg, New(4), st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()
	st.SetScheduler(mgr)

	key := api.NewQueryKey(api.OpGetProducts, nil)
	st.GetOrFetch(key)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e, _ := st.Peek(key); e.Fresh() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	e, _ := st.Peek(key)
	if !e.Fresh() || e.Data != "products" {
		t.Fatalf("expected fetched entry, got %+v", e)
	}
	if enq, _, _, _ := mgr.QueueMetrics(); enq != 1 {
		t.Fatalf("expected fetch to go through the queue, enqueued=%d", enq)
	}
}

func TestManagerStopWaitsForRunningJob(t *testing.T) {
	cfg := config.Load()
	r := &countingRunner{delay: 50 * time.Millisecond}
	mgr := NewManager(cfg, New(4), r)
	mgr.Start(context.Background())

	_ = mgr.Schedule(api.NewQueryKey(api.OpGetProducts, nil))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, backlog, depth := mgr.QueueMetrics(); backlog == 0 && depth == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mgr.Stop()
	if got := r.total(); got != 1 {
		t.Fatalf("expected the running job to finish before Stop returned, runs=%d", got)
	}
	if wc := mgr.WorkerCount(); wc != 0 {
		t.Fatalf("expected no workers after Stop, got %d", wc)
	}
}
