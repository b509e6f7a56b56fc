// Package store is the query cache: one slot per api.QueryKey holding the
// last result, its tags and its subscribers. Fetches for one key are
// coalesced so that at most one request is outstanding per key.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
)

// ErrClosed is returned by Await once the store has been closed.
var ErrClosed = errors.New("store closed")

// Fetcher resolves a query key to its data.
type Fetcher interface {
	Fetch(ctx context.Context, key api.QueryKey) (any, error)
}

// Scheduler runs store fetches in the background. Schedule returns false
// when it no longer accepts work.
type Scheduler interface {
	Schedule(key api.QueryKey) bool
}

// Listener receives entry snapshots. It is called synchronously by the
// goroutine that made the change and must not call Await on the same key
// or Close.
type Listener func(Entry)

type subscriber struct {
	id ulid.ULID
	fn Listener
}

type slot struct {
	entry Entry
	// gen is bumped on every invalidation; a fetch that started under an
	// older gen lands stale.
	gen      uint64
	pending  bool
	fetching bool
	subs     []subscriber
	evict    *time.Timer
}

type notification struct {
	fns   []Listener
	entry Entry
}

// Store owns the cache. Create it with New and release it with Close.
type Store struct {
	fetcher       Fetcher
	keepUnusedFor time.Duration
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	slots     map[api.QueryKey]*slot
	scheduler Scheduler

	flight  singleflight.Group
	fetches atomic.Uint64
	// loads counts load calls in progress; Close waits for them.
	loads sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithKeepUnusedFor evicts entries that have had no subscribers for d.
// Zero or negative keeps them until Close.
func WithKeepUnusedFor(d time.Duration) Option {
	return func(s *Store) { s.keepUnusedFor = d }
}

// WithClock replaces time.Now for LastFetchedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store that resolves keys with f.
func New(f Fetcher, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		fetcher: f,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		slots:   make(map[api.QueryKey]*slot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler routes background fetches through sc. Without a scheduler
// each fetch runs on its own goroutine.
func (s *Store) SetScheduler(sc Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = sc
}

// Close cancels outstanding fetches, stops eviction timers and waits for
// running fetches to return. No fetch starts after Close.
func (s *Store) Close() {
	s.cancel()
	s.mu.Lock()
	for _, sl := range s.slots {
		if sl.evict != nil {
			sl.evict.Stop()
			sl.evict = nil
		}
	}
	s.mu.Unlock()
	s.loads.Wait()
}

// GetOrFetch returns the current entry for key and, if there is no fresh
// entry and no fetch under way, schedules one.
func (s *Store) GetOrFetch(key api.QueryKey) Entry {
	s.mu.Lock()
	sl := s.slotLocked(key)
	var ns []notification
	schedule := false
	if s.needsFetchLocked(sl) {
		ns = append(ns, s.markPendingLocked(sl))
		schedule = true
	}
	e := sl.entry.clone()
	s.mu.Unlock()

	deliver(ns)
	if schedule {
		s.schedule(key)
	}
	return e
}

// Peek returns the entry for key without triggering a fetch.
func (s *Store) Peek(key api.QueryKey) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		return Entry{}, false
	}
	return sl.entry.clone(), true
}

// SetEntry replaces the entry for key. Missing tags default to the tags the
// key's operation provides.
func (s *Store) SetEntry(key api.QueryKey, e Entry) {
	s.mu.Lock()
	sl := s.slotLocked(key)
	e = e.normalize()
	if e.Tags == nil {
		e.Tags = api.ProvidedTags(key.Op)
	}
	e.Revision = sl.entry.Revision
	e.Fetching = sl.fetching
	sl.entry = e.clone()
	n := s.changedLocked(sl)
	s.mu.Unlock()

	deliver([]notification{n})
}

// Subscribe registers fn for changes of key and returns the current entry
// together with an unsubscribe function. A subscription to an entry that is
// missing, stale or failed triggers a fetch.
func (s *Store) Subscribe(key api.QueryKey, fn Listener) (Entry, func()) {
	id := ulid.Make()

	s.mu.Lock()
	sl := s.slotLocked(key)
	if sl.evict != nil {
		sl.evict.Stop()
		sl.evict = nil
	}
	sl.subs = append(sl.subs, subscriber{id: id, fn: fn})
	var ns []notification
	schedule := false
	retry := sl.entry.Status == StatusError && !sl.pending && !sl.fetching
	if s.needsFetchLocked(sl) || retry {
		ns = append(ns, s.markPendingLocked(sl))
		schedule = true
	}
	e := sl.entry.clone()
	s.mu.Unlock()

	deliver(ns)
	if schedule {
		s.schedule(key)
	}

	var once sync.Once
	return e, func() {
		once.Do(func() { s.unsubscribe(key, id) })
	}
}

func (s *Store) unsubscribe(key api.QueryKey, id ulid.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		return
	}
	for i, sub := range sl.subs {
		if sub.id == id {
			sl.subs = append(sl.subs[:i:i], sl.subs[i+1:]...)
			break
		}
	}
	s.armEvictLocked(key, sl)
}

// Subscribers returns the number of listeners on key.
func (s *Store) Subscribers(key api.QueryKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[key]; ok {
		return len(sl.subs)
	}
	return 0
}

// Refetch forces a new fetch of key unless one is already scheduled or
// under way.
func (s *Store) Refetch(key api.QueryKey) {
	s.mu.Lock()
	sl := s.slotLocked(key)
	if sl.pending || sl.fetching {
		s.mu.Unlock()
		return
	}
	n := s.markPendingLocked(sl)
	s.mu.Unlock()

	deliver([]notification{n})
	s.schedule(key)
}

// Invalidate marks every entry carrying one of tags as stale. Entries with
// subscribers are re-fetched right away; the rest are re-fetched on their
// next read. It returns the number of entries marked.
func (s *Store) Invalidate(tags ...api.Tag) int {
	if len(tags) == 0 {
		return 0
	}
	s.mu.Lock()
	var ns []notification
	var refetch []api.QueryKey
	for key, sl := range s.slots {
		if !intersects(sl.entry.Tags, tags) {
			continue
		}
		sl.gen++
		sl.entry.Stale = true
		if len(sl.subs) > 0 && !sl.pending && !sl.fetching {
			sl.pending = true
			refetch = append(refetch, key)
		}
		ns = append(ns, s.changedLocked(sl))
	}
	s.mu.Unlock()

	obs.Logger.Debug("tags_invalidated",
		"tags", tags,
		"entries", len(ns),
		"refetching", len(refetch),
	)
	deliver(ns)
	for _, key := range refetch {
		s.schedule(key)
	}
	return len(ns)
}

// Await returns the entry for key once it is settled: fresh data, or an
// error with no fetch pending. Concurrent callers share one request.
func (s *Store) Await(ctx context.Context, key api.QueryKey) (Entry, error) {
	for {
		s.mu.Lock()
		sl := s.slotLocked(key)
		var ns []notification
		if s.needsFetchLocked(sl) {
			ns = append(ns, s.markPendingLocked(sl))
		}
		settled := sl.entry.Fresh() ||
			(sl.entry.Status == StatusError && !sl.entry.Stale && !sl.pending && !sl.fetching)
		e := sl.entry.clone()
		s.mu.Unlock()

		deliver(ns)
		if settled {
			return e, nil
		}
		if s.ctx.Err() != nil {
			return e, ErrClosed
		}
		ch := s.flight.DoChan(key.String(), func() (any, error) {
			return s.load(s.ctx, key), nil
		})
		select {
		case <-ch:
			// a result that landed stale is picked up by the next iteration
		case <-ctx.Done():
			go s.followUp(key, ch)
			return e, ctx.Err()
		}
	}
}

// followUp schedules the re-fetch a stale load asked for once the shared
// call has finished.
func (s *Store) followUp(key api.QueryKey, ch <-chan singleflight.Result) {
	if again, _ := (<-ch).Val.(bool); again {
		s.schedule(key)
	}
}

// RunScheduled performs a scheduled fetch of key. It is a no-op if another
// caller already picked the fetch up.
func (s *Store) RunScheduled(ctx context.Context, key api.QueryKey) {
	s.mu.Lock()
	sl, ok := s.slots[key]
	pending := ok && sl.pending
	s.mu.Unlock()
	if !pending {
		return
	}
	again := false
	_, _, _ = s.flight.Do(key.String(), func() (any, error) {
		again = s.load(ctx, key)
		return again, nil
	})
	if again {
		s.schedule(key)
	}
}

// load runs inside the key's singleflight call, so at most one load per key
// is active. It reports whether the result landed stale on a subscribed
// entry and must be fetched again; the caller schedules that once the call
// has left the flight group.
func (s *Store) load(ctx context.Context, key api.QueryKey) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	sl := s.slotLocked(key)
	if sl.fetching || (!sl.pending && sl.entry.Status != StatusIdle && !sl.entry.Stale) {
		s.mu.Unlock()
		return false
	}
	// checked and counted under mu, so Close either sees this load or the
	// load sees the cancelled context
	s.loads.Add(1)
	defer s.loads.Done()
	sl.pending = false
	sl.fetching = true
	gen := sl.gen
	if sl.entry.Status != StatusSuccess {
		sl.entry.Status = StatusLoading
		sl.entry.Err = nil
	}
	start := s.changedLocked(sl)
	s.mu.Unlock()

	deliver([]notification{start})
	obs.Logger.Debug("query_fetch_start", "key", key.String())

	data, err := s.fetcher.Fetch(ctx, key)
	s.fetches.Add(1)

	s.mu.Lock()
	sl.fetching = false
	next := Entry{
		Tags:          api.ProvidedTags(key.Op),
		LastFetchedAt: s.now(),
		Revision:      sl.entry.Revision,
	}
	if err != nil {
		next.Status = StatusError
		next.Err = err
	} else {
		next.Status = StatusSuccess
		next.Data = data
	}
	next.Stale = sl.gen != gen
	sl.entry = next
	refetch := next.Stale && len(sl.subs) > 0 && s.ctx.Err() == nil
	if refetch {
		sl.pending = true
	}
	done := s.changedLocked(sl)
	if !refetch {
		s.armEvictLocked(key, sl)
	}
	s.mu.Unlock()

	if err != nil {
		obs.Logger.Warn("query_fetch_error", "key", key.String(), "error", err)
	} else {
		obs.Logger.Debug("query_fetch_done", "key", key.String(), "stale", next.Stale)
	}
	deliver([]notification{done})
	return refetch
}

func (s *Store) schedule(key api.QueryKey) {
	s.mu.Lock()
	sc := s.scheduler
	s.mu.Unlock()
	if sc != nil && sc.Schedule(key) {
		return
	}
	go s.RunScheduled(s.ctx, key)
}

// Fetches returns the number of fetcher calls made so far.
func (s *Store) Fetches() uint64 { return s.fetches.Load() }

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Keys lists the keys currently cached.
func (s *Store) Keys() []api.QueryKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Keys(s.slots)
}

func (s *Store) slotLocked(key api.QueryKey) *slot {
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{entry: Entry{Status: StatusIdle, Tags: api.ProvidedTags(key.Op)}}
		s.slots[key] = sl
	}
	return sl
}

func (s *Store) needsFetchLocked(sl *slot) bool {
	if sl.pending || sl.fetching {
		return false
	}
	return sl.entry.Status == StatusIdle || sl.entry.Stale
}

func (s *Store) markPendingLocked(sl *slot) notification {
	sl.pending = true
	if sl.entry.Status != StatusSuccess {
		sl.entry.Status = StatusLoading
		sl.entry.Err = nil
	}
	return s.changedLocked(sl)
}

func (s *Store) changedLocked(sl *slot) notification {
	sl.entry.Revision++
	sl.entry.Fetching = sl.fetching || sl.pending
	fns := make([]Listener, 0, len(sl.subs))
	for _, sub := range sl.subs {
		fns = append(fns, sub.fn)
	}
	return notification{fns: fns, entry: sl.entry.clone()}
}

func (s *Store) armEvictLocked(key api.QueryKey, sl *slot) {
	if s.keepUnusedFor <= 0 || len(sl.subs) > 0 || s.ctx.Err() != nil {
		return
	}
	if sl.evict != nil {
		sl.evict.Stop()
	}
	sl.evict = time.AfterFunc(s.keepUnusedFor, func() { s.evict(key, sl) })
}

func (s *Store) evict(key api.QueryKey, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.slots[key]; !ok || cur != sl {
		return
	}
	if len(sl.subs) > 0 || sl.pending || sl.fetching {
		return
	}
	delete(s.slots, key)
	obs.Logger.Debug("query_evicted", "key", key.String())
}

func deliver(ns []notification) {
	for _, n := range ns {
		for _, fn := range n.fns {
			fn(n.entry)
		}
	}
}
