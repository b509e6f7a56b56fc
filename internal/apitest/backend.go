// Package apitest is an in-memory inventory backend serving the product
// REST API over HTTP. Tests use it to drive the client end to end and to
// count, hold back or fail individual requests.
package apitest

import (
	"sync"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

type failure struct {
	status int
	detail any
}

// Backend holds the products and the request bookkeeping.
type Backend struct {
	mu       sync.Mutex
	products []model.Product
	nextID   int
	counts   map[api.Operation]int
	failures map[api.Operation][]failure
	gates    map[api.Operation]chan struct{}
}

func NewBackend() *Backend {
	return &Backend{
		nextID:   1,
		counts:   make(map[api.Operation]int),
		failures: make(map[api.Operation][]failure),
		gates:    make(map[api.Operation]chan struct{}),
	}
}

// Seed inserts products directly, bypassing the API, and returns their ids.
func (b *Backend) Seed(products ...model.Product) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(products))
	for _, p := range products {
		ids = append(ids, b.insertLocked(p))
	}
	return ids
}

func (b *Backend) insertLocked(p model.Product) int {
	p.ID = b.nextID
	b.nextID++
	b.products = append(b.products, p)
	return p.ID
}

// Products returns a copy of the stored products.
func (b *Backend) Products() []model.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Product{}, b.products...)
}

// Count returns how many requests for op have been received.
func (b *Backend) Count(op api.Operation) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[op]
}

// FailNext makes the next request for op answer status with detail, which
// may be nil, a string or a list of validation issues. Calls stack.
func (b *Backend) FailNext(op api.Operation, status int, detail any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = append(b.failures[op], failure{status: status, detail: detail})
}

// Hold blocks requests for op until the returned release function is
// called. Requests already counted keep waiting; release is idempotent.
func (b *Backend) Hold(op api.Operation) (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[op] = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gates[op] == gate {
				delete(b.gates, op)
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

// admit counts a request and applies holds and injected failures. It
// returns the failure to answer with, if any.
func (b *Backend) admit(op api.Operation) *failure {
	b.mu.Lock()
	b.counts[op]++
	gate := b.gates[op]
	var f *failure
	if q := b.failures[op]; len(q) > 0 {
		f = &q[0]
		b.failures[op] = q[1:]
	}
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f
}

func (b *Backend) update(id int, p model.Product) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			p.ID = id
			b.products[i] = p
			return true
		}
	}
	return false
}

func (b *Backend) remove(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			return true
		}
	}
	return false
}
