package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/transport"
)

// MutationStatus is the lifecycle of the latest Trigger call.
type MutationStatus string

const (
	MutationIdle    MutationStatus = "idle"
	MutationLoading MutationStatus = "loading"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// MutationState describes the latest Trigger call of a Mutation.
type MutationState[R any] struct {
	Status MutationStatus
	Data   R
	Err    error
}

func (s MutationState[R]) IsLoading() bool { return s.Status == MutationLoading }

// Result is the outcome of one Trigger call.
type Result[R any] struct {
	Data R
	Err  error
}

func (r Result[R]) OK() bool { return r.Err == nil }

// Mutation is a write operation. Once the server has answered, success or
// HTTP error, the tags its operation declares are invalidated; the re-fetches
// that follow run in the background. A request that never reached the server
// invalidates nothing.
type Mutation[A, R any] struct {
	op   api.Operation
	st   *store.Store
	call func(ctx context.Context, arg A) (R, error)

	mu    sync.Mutex
	calls uint64
	state MutationState[R]
}

func newMutation[A, R any](st *store.Store, op api.Operation, call func(context.Context, A) (R, error)) *Mutation[A, R] {
	return &Mutation[A, R]{
		op:    op,
		st:    st,
		call:  call,
		state: MutationState[R]{Status: MutationIdle},
	}
}

// Trigger sends the request and returns once it has completed.
func (m *Mutation[A, R]) Trigger(ctx context.Context, arg A) Result[R] {
	m.mu.Lock()
	m.calls++
	id := m.calls
	m.state = MutationState[R]{Status: MutationLoading}
	m.mu.Unlock()

	data, err := m.call(ctx, arg)
	if err != nil {
		obs.Logger.Warn("mutation_failed", "op", string(m.op), "error", err)
	}
	if serverAnswered(err) {
		m.st.Invalidate(api.InvalidatedTags(m.op)...)
	}

	m.mu.Lock()
	// an older call finishing late does not overwrite a newer one
	if id == m.calls {
		if err != nil {
			m.state = MutationState[R]{Status: MutationError, Err: err}
		} else {
			m.state = MutationState[R]{Status: MutationSuccess, Data: data}
		}
	}
	m.mu.Unlock()
	return Result[R]{Data: data, Err: err}
}

// Unwrap is Trigger with the result split into the usual value and error.
func (m *Mutation[A, R]) Unwrap(ctx context.Context, arg A) (R, error) {
	r := m.Trigger(ctx, arg)
	return r.Data, r.Err
}

func (m *Mutation[A, R]) State() MutationState[R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the mutation to idle. A call still in flight no longer
// updates the state.
func (m *Mutation[A, R]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.state = MutationState[R]{Status: MutationIdle}
}

// serverAnswered reports whether err is nil or an HTTP error response. The
// server may have changed state even when it answered with an error.
func serverAnswered(err error) bool {
	if err == nil {
		return true
	}
	var he *transport.HTTPError
	return errors.As(err, &he)
}
