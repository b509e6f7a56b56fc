package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/apitest"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/transport"
)

func setup(t *testing.T) (*apitest.Backend, *Client) {
	t.Helper()
	b := apitest.NewBackend()
	srv := apitest.Serve(b)
	t.Cleanup(srv.Close)
	a := api.New(transport.New(srv.URL))
	st := store.New(a)
	t.Cleanup(st.Close)
	return b, New(a, st, WithRedirectDelay(10*time.Millisecond))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func validForm() model.ProductForm {
	return model.ProductForm{Name: "Lamp", SKU: "L-1", Stock: 4, Price: "12.50", Category: "Home & Garden"}
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	b, c := setup(t)
	release := b.Hold(api.OpGetProducts)

	q := c.ListQuery()
	assert.Equal(t, q.State().IsLoading(), true)
	assert.Equal(t, c.ListQuery().State().IsLoading(), true)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.ListQuery().Await(context.Background())
		}()
	}
	waitFor(t, func() bool { return b.Count(api.OpGetProducts) == 1 })
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	assert.Equal(t, b.Count(api.OpGetProducts), 1)
	assert.Equal(t, q.State().IsSuccess(), true)
}

func TestCreateIncreasesListLength(t *testing.T) {
	b, c := setup(t)
	b.Seed(model.Product{Name: "Pen", SKU: "P-1", Stock: 1, Price: "1.00", Category: "Other"})

	q := c.ListQuery()
	var mu sync.Mutex
	var lengths []int
	unsubscribe := q.Subscribe(func(s State[[]model.Product]) {
		if s.IsSuccess() && !s.Stale {
			mu.Lock()
			lengths = append(lengths, len(s.Data))
			mu.Unlock()
		}
	})
	defer unsubscribe()

	s, err := q.Await(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, len(s.Data), 1)

	id, err := SubmitCreate(context.Background(), c.CreateMutation(), validForm())
	assert.Equal(t, err, nil)
	assert.Equal(t, id, 2)

	waitFor(t, func() bool {
		s := q.State()
		return s.IsSuccess() && !s.Stale && len(s.Data) == 2
	})
	assert.Equal(t, b.Count(api.OpGetProducts), 2)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lengths) > 0 && lengths[len(lengths)-1] == 2
	})
}

func TestUpdateRefreshesList(t *testing.T) {
	b, c := setup(t)
	ids := b.Seed(model.Product{Name: "Pen", SKU: "P-1", Stock: 1, Price: "1.00", Category: "Other"})

	q := c.ListQuery()
	unsubscribe := q.Subscribe(func(State[[]model.Product]) {})
	defer unsubscribe()
	_, _ = q.Await(context.Background())

	form := validForm()
	form.Name = "Fountain Pen"
	assert.Equal(t, SubmitUpdate(context.Background(), c.UpdateMutation(), ids[0], form), nil)

	waitFor(t, func() bool {
		s := q.State()
		return s.IsSuccess() && len(s.Data) == 1 && s.Data[0].Name == "Fountain Pen"
	})
}

func TestDeleteOfIDMissingFromCachedListStillRefetches(t *testing.T) {
	b, c := setup(t)
	q := c.ListQuery()
	unsubscribe := q.Subscribe(func(State[[]model.Product]) {})
	defer unsubscribe()

	s, _ := q.Await(context.Background())
	assert.Equal(t, len(s.Data), 0)

	// created behind the cache's back, so the cached list does not have it
	ids := b.Seed(model.Product{Name: "Ghost", SKU: "G", Price: "0", Category: "Other"})
	_, err := model.FindProduct(s.Data, ids[0])
	assert.Equal(t, errors.Is(err, model.ErrNotFound), true)

	_, err = c.DeleteMutation().Unwrap(context.Background(), ids[0])
	assert.Equal(t, err, nil)
	waitFor(t, func() bool { return b.Count(api.OpGetProducts) == 2 })
	waitFor(t, func() bool { s := q.State(); return s.IsSuccess() && !s.Stale })
}

func TestDeleteUnknownIDStillRefetchesList(t *testing.T) {
	b, c := setup(t)
	q := c.ListQuery()
	unsubscribe := q.Subscribe(func(State[[]model.Product]) {})
	defer unsubscribe()
	_, _ = q.Await(context.Background())
	before := b.Count(api.OpGetProducts)

	m := c.DeleteMutation()
	_, err := m.Unwrap(context.Background(), 999)
	var he *transport.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	assert.Equal(t, he.Status, http.StatusNotFound)
	assert.Equal(t, FailureMessage(err, MsgDeleteFailed), "Product not found")
	assert.Equal(t, m.State().Status, MutationError)

	waitFor(t, func() bool { return b.Count(api.OpGetProducts) == before+1 })
	waitFor(t, func() bool { s := q.State(); return s.IsSuccess() && !s.Stale })
}

func TestUnreachableServerDoesNotInvalidate(t *testing.T) {
	b := apitest.NewBackend()
	srv := apitest.Serve(b)
	t.Cleanup(srv.Close)
	st := store.New(api.New(transport.New(srv.URL)))
	t.Cleanup(st.Close)

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	c := New(api.New(transport.New(down.URL)), st)

	q := newQuery[[]model.Product](st, api.OpGetProducts, nil)
	_, _ = q.Await(context.Background())

	_, err := c.DeleteMutation().Unwrap(context.Background(), 1)
	var ne *transport.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	assert.Equal(t, q.State().Stale, false)
	assert.Equal(t, b.Count(api.OpGetProducts), 1)
}

func TestFailedFetchRecoversOnRefetch(t *testing.T) {
	b, c := setup(t)
	b.FailNext(api.OpGetProducts, http.StatusInternalServerError, nil)

	q := c.ListQuery()
	s, err := q.Await(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, s.IsError(), true)
	var he *transport.HTTPError
	if !errors.As(s.Err, &he) || he.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", s.Err)
	}
	assert.Equal(t, NewListView(s).Error, MsgLoadFailed)
	assert.Equal(t, NewEditView(s, 1).Error, MsgNotFound)

	q.Refetch()
	waitFor(t, func() bool { return q.State().IsSuccess() })
	s = q.State()
	assert.Equal(t, s.Err, nil)
	assert.Equal(t, NewListView(s).Empty, true)
}

func TestSubmitCreateRejectsInvalidFormWithoutRequest(t *testing.T) {
	b, c := setup(t)
	form := validForm()
	form.Price = "-1"

	_, err := SubmitCreate(context.Background(), c.CreateMutation(), form)
	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	assert.Equal(t, se.Message, "Price must be a valid number 0 or greater")
	var ve *model.ValidationError
	assert.Equal(t, errors.As(err, &ve), true)
	assert.Equal(t, b.Count(api.OpCreateProduct), 0)

	form = validForm()
	form.Stock = 3.5
	_, err = SubmitCreate(context.Background(), c.CreateMutation(), form)
	assert.Equal(t, err.Error(), "Stock must be a whole number")
}

func TestSubmitUpdateMessages(t *testing.T) {
	b, c := setup(t)
	ids := b.Seed(model.Product{Name: "Pen", SKU: "P-1", Stock: 1, Price: "1.00", Category: "Other"})
	m := c.UpdateMutation()

	b.FailNext(api.OpUpdateProduct, http.StatusUnprocessableEntity, []model.ValidationIssue{
		{Loc: []any{"body", "sku"}, Msg: "SKU already exists", Type: "value_error"},
	})
	err := SubmitUpdate(context.Background(), m, ids[0], validForm())
	assert.Equal(t, err.Error(), "SKU already exists")

	b.FailNext(api.OpUpdateProduct, http.StatusInternalServerError, nil)
	err = SubmitUpdate(context.Background(), m, ids[0], validForm())
	assert.Equal(t, err.Error(), MsgUpdateFailed)

	err = SubmitUpdate(context.Background(), m, 999, validForm())
	assert.Equal(t, err.Error(), "Product not found")
}

func TestMutationStateLifecycle(t *testing.T) {
	b, c := setup(t)
	m := c.CreateMutation()
	assert.Equal(t, m.State().Status, MutationIdle)

	release := b.Hold(api.OpCreateProduct)
	done := make(chan Result[int], 1)
	go func() { done <- m.Trigger(context.Background(), validForm().CreateCommand()) }()
	waitFor(t, func() bool { return b.Count(api.OpCreateProduct) == 1 })
	assert.Equal(t, m.State().IsLoading(), true)
	release()

	r := <-done
	assert.Equal(t, r.OK(), true)
	assert.Equal(t, r.Data, 1)
	assert.Equal(t, m.State().Status, MutationSuccess)
	assert.Equal(t, m.State().Data, 1)

	m.Reset()
	assert.Equal(t, m.State().Status, MutationIdle)
}

func TestWatchStreamsUntilCancelled(t *testing.T) {
	b, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := c.ListQuery().Watch(ctx)

	var last State[[]model.Product]
	for s := range ch {
		last = s
		if s.IsSuccess() {
			break
		}
	}
	assert.Equal(t, last.IsSuccess(), true)

	b.Seed(model.Product{Name: "A", SKU: "A", Price: "1", Category: "Other"})
	c.Store().Invalidate(api.TagProduct)
	for s := range ch {
		if s.IsSuccess() && !s.Stale && len(s.Data) == 1 {
			break
		}
	}

	cancel()
	for range ch {
	}
	waitFor(t, func() bool { return c.Store().Subscribers(c.ListQuery().Key()) == 0 })
}

func TestEditViewFindsProductInList(t *testing.T) {
	b, c := setup(t)
	ids := b.Seed(model.Product{Name: "Pen", SKU: "P-1", Stock: 2, Price: "1.50", Category: "Other"})
	s, _ := c.ListQuery().Await(context.Background())

	v := NewEditView(s, ids[0])
	assert.Equal(t, v.Error, "")
	assert.Equal(t, v.Product.Name, "Pen")
	assert.Equal(t, v.Form.Stock, float64(2))
	assert.Equal(t, v.Form.Validate(), nil)

	assert.Equal(t, NewEditView(s, 404).Error, MsgNotFound)
	assert.Equal(t, NewEditView(State[[]model.Product]{Status: store.StatusLoading}, 1).Loading, true)
}

func TestScheduleRedirect(t *testing.T) {
	_, c := setup(t)
	var fired atomic.Bool
	ScheduleRedirect(c.RedirectDelay(), func() { fired.Store(true) })
	waitFor(t, fired.Load)

	var cancelled atomic.Bool
	cancel := ScheduleRedirect(time.Hour, func() { cancelled.Store(true) })
	assert.Equal(t, cancel(), true)
	assert.Equal(t, cancel(), false)
	assert.Equal(t, cancelled.Load(), false)
}
