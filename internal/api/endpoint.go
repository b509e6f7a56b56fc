// Package api declares the inventory endpoints once, together with their
// cache tags, and binds them to a transport.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

const productsPath = "/api/Products"

// ErrNotQuery is returned by Fetch for keys whose operation is not a query.
var ErrNotQuery = errors.New("operation is not a query")

// Doer is the transport contract the endpoints are executed on.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Endpoint describes one operation: method, URL template and the request
// body derived from the argument. Discard marks endpoints whose success
// payload is not inspected.
type Endpoint[Arg, Res any] struct {
	Op      Operation
	Method  string
	Path    func(Arg) string
	Body    func(Arg) any
	Discard bool
}

func newEndpoint[Arg, Res any](op Operation, method string, path func(Arg) string) Endpoint[Arg, Res] {
	return Endpoint[Arg, Res]{
		Op:     op,
		Method: method,
		Path:   path,
	}
}

func GET[Arg, Res any](op Operation, path func(Arg) string) Endpoint[Arg, Res] {
	return newEndpoint[Arg, Res](op, http.MethodGet, path)
}

func POST[Arg, Res any](op Operation, path func(Arg) string, body func(Arg) any) Endpoint[Arg, Res] {
	e := newEndpoint[Arg, Res](op, http.MethodPost, path)
	e.Body = body
	return e
}

func PUT[Arg, Res any](op Operation, path func(Arg) string, body func(Arg) any) Endpoint[Arg, Res] {
	e := newEndpoint[Arg, Res](op, http.MethodPut, path)
	e.Body = body
	return e
}

func DELETE[Arg, Res any](op Operation, path func(Arg) string) Endpoint[Arg, Res] {
	return newEndpoint[Arg, Res](op, http.MethodDelete, path)
}

func staticPath[Arg any](p string) func(Arg) string {
	return func(Arg) string { return p }
}

func (e Endpoint[Arg, Res]) discard() Endpoint[Arg, Res] {
	e.Discard = true
	return e
}

// Call executes e with arg over d.
func Call[Arg, Res any](ctx context.Context, d Doer, e Endpoint[Arg, Res], arg Arg) (Res, error) {
	var res Res
	var body any
	if e.Body != nil {
		body = e.Body(arg)
	}
	var out any = &res
	if e.Discard {
		out = nil
	}
	if err := d.Do(ctx, e.Method, e.Path(arg), body, out); err != nil {
		return res, fmt.Errorf("%s: %w", e.Op, err)
	}
	return res, nil
}

// UpdateProductArg carries the path id and the body of an update.
type UpdateProductArg struct {
	ID      int
	Command model.UpdateProductCommand
}

// Ack is the result of endpoints whose payload is ignored.
type Ack struct{}

var (
	GetProducts = GET[struct{}, []model.Product](OpGetProducts, staticPath[struct{}](productsPath))

	CreateProduct = POST[model.CreateProductCommand, int](OpCreateProduct,
		staticPath[model.CreateProductCommand](productsPath),
		func(cmd model.CreateProductCommand) any { return cmd },
	)

	UpdateProduct = PUT[UpdateProductArg, Ack](OpUpdateProduct,
		func(a UpdateProductArg) string { return productPath(a.ID) },
		func(a UpdateProductArg) any { return a.Command },
	).discard()

	DeleteProduct = DELETE[int, Ack](OpDeleteProduct, productPath).discard()
)

func productPath(id int) string {
	return productsPath + "/" + strconv.Itoa(id)
}
