// Package dashboard is the surface the product screens are built on: typed
// query and mutation handles over the shared store, plus the form and view
// helpers that turn their state into what the screens show.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
)

// State is a typed snapshot of a query's cache entry.
type State[T any] struct {
	Status        store.Status
	Data          T
	Err           error
	Stale         bool
	Fetching      bool
	LastFetchedAt time.Time
	Revision      uint64
}

// IsLoading reports whether there is nothing to show yet.
func (s State[T]) IsLoading() bool {
	return s.Status == store.StatusIdle || s.Status == store.StatusLoading
}

func (s State[T]) IsSuccess() bool { return s.Status == store.StatusSuccess }

func (s State[T]) IsError() bool { return s.Status == store.StatusError }

func stateOf[T any](e store.Entry) State[T] {
	s := State[T]{
		Status:        e.Status,
		Err:           e.Err,
		Stale:         e.Stale,
		Fetching:      e.Fetching,
		LastFetchedAt: e.LastFetchedAt,
		Revision:      e.Revision,
	}
	if v, ok := e.Data.(T); ok {
		s.Data = v
	}
	return s
}

// Query is a handle on one cached query.
type Query[T any] struct {
	st  *store.Store
	key api.QueryKey
}

func newQuery[T any](st *store.Store, op api.Operation, args any) *Query[T] {
	return &Query[T]{st: st, key: api.NewQueryKey(op, args)}
}

func (q *Query[T]) Key() api.QueryKey { return q.key }

// State returns the current snapshot and starts a fetch if the entry is
// missing or stale.
func (q *Query[T]) State() State[T] {
	return stateOf[T](q.st.GetOrFetch(q.key))
}

// Subscribe calls fn with the current snapshot and then with every later
// one, in revision order; snapshots older than one already delivered are
// dropped. The returned function ends the subscription.
func (q *Query[T]) Subscribe(fn func(State[T])) func() {
	var mu sync.Mutex
	var last uint64
	seen := false
	emit := func(e store.Entry) {
		mu.Lock()
		defer mu.Unlock()
		if seen && e.Revision <= last {
			return
		}
		seen = true
		last = e.Revision
		fn(stateOf[T](e))
	}
	initial, unsubscribe := q.st.Subscribe(q.key, emit)
	emit(initial)
	return unsubscribe
}

// Watch streams snapshots until ctx is done. A slow reader only ever sees
// the latest snapshot.
func (q *Query[T]) Watch(ctx context.Context) <-chan State[T] {
	ch := make(chan State[T], 1)
	var mu sync.Mutex
	closed := false
	unsubscribe := q.Subscribe(func(s State[T]) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- s
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

// Await blocks until the query has settled on data or an error.
func (q *Query[T]) Await(ctx context.Context) (State[T], error) {
	e, err := q.st.Await(ctx, q.key)
	return stateOf[T](e), err
}

// Refetch forces a new request for the query.
func (q *Query[T]) Refetch() { q.st.Refetch(q.key) }
