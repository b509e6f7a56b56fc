package dashboard

import (
	"context"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/store"
)

const defaultRedirectDelay = 1500 * time.Millisecond

// Client hands out the product queries and mutations. All handles share
// the store passed to New.
type Client struct {
	api           *api.API
	st            *store.Store
	redirectDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRedirectDelay sets the pause between a successful save and the return
// to the product list.
func WithRedirectDelay(d time.Duration) Option {
	return func(c *Client) { c.redirectDelay = d }
}

func New(a *api.API, st *store.Store, opts ...Option) *Client {
	c := &Client{api: a, st: st, redirectDelay: defaultRedirectDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *store.Store { return c.st }

func (c *Client) RedirectDelay() time.Duration { return c.redirectDelay }

// ListQuery is the product list.
func (c *Client) ListQuery() *Query[[]model.Product] {
	return newQuery[[]model.Product](c.st, api.OpGetProducts, nil)
}

// CreateMutation returns the id of the new product.
func (c *Client) CreateMutation() *Mutation[model.CreateProductCommand, int] {
	return newMutation(c.st, api.OpCreateProduct, c.api.CreateProduct)
}

func (c *Client) UpdateMutation() *Mutation[api.UpdateProductArg, api.Ack] {
	return newMutation(c.st, api.OpUpdateProduct, func(ctx context.Context, arg api.UpdateProductArg) (api.Ack, error) {
		return api.Ack{}, c.api.UpdateProduct(ctx, arg.ID, arg.Command)
	})
}

func (c *Client) DeleteMutation() *Mutation[int, api.Ack] {
	return newMutation(c.st, api.OpDeleteProduct, func(ctx context.Context, id int) (api.Ack, error) {
		return api.Ack{}, c.api.DeleteProduct(ctx, id)
	})
}
