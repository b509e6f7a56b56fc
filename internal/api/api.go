package api

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

// API binds the product endpoints to a transport.
type API struct {
	d Doer
}

func New(d Doer) *API {
	return &API{d: d}
}

func (a *API) ListProducts(ctx context.Context) ([]model.Product, error) {
	return Call(ctx, a.d, GetProducts, struct{}{})
}

// CreateProduct returns the id assigned by the server.
func (a *API) CreateProduct(ctx context.Context, cmd model.CreateProductCommand) (int, error) {
	return Call(ctx, a.d, CreateProduct, cmd)
}

func (a *API) UpdateProduct(ctx context.Context, id int, cmd model.UpdateProductCommand) error {
	_, err := Call(ctx, a.d, UpdateProduct, UpdateProductArg{ID: id, Command: cmd})
	return err
}

func (a *API) DeleteProduct(ctx context.Context, id int) error {
	_, err := Call(ctx, a.d, DeleteProduct, id)
	return err
}

// Fetch resolves a query key to its data. It is the store's fetcher.
func (a *API) Fetch(ctx context.Context, key QueryKey) (any, error) {
	switch key.Op {
	case OpGetProducts:
		products, err := a.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []model.Product{}
		}
		return products, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotQuery, key.Op)
	}
}
