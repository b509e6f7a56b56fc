package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/transport"
)

const (
	MsgLoadFailed     = "Failed to load products. Please try again later."
	MsgNotFound       = "Product not found or failed to load."
	MsgCreateFailed   = "Failed to create product. Please try again."
	MsgUpdateFailed   = "Failed to update product. Please try again."
	MsgDeleteFailed   = "Failed to delete product. Please try again."
	MsgCreated        = "Product created successfully! Redirecting to dashboard..."
	MsgUpdated        = "Product updated successfully! Redirecting to dashboard..."
	MsgNoProducts     = "No products found"
	MsgLoadingList    = "Loading products..."
	MsgLoadingProduct = "Loading product..."
)

// SubmitError is returned by the form submit helpers. Message is what the
// form shows; Err is the underlying failure.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// FailureMessage picks the text a form shows for err: the first client-side
// validation message, the first server message, or fallback.
func FailureMessage(err error, fallback string) string {
	var ve *model.ValidationError
	if errors.As(err, &ve) && ve.First() != "" {
		return ve.First()
	}
	var he *transport.HTTPError
	if errors.As(err, &he) {
		if msg := he.FirstMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// SubmitCreate validates form and, if it passes, creates the product. A
// validation failure sends no request.
func SubmitCreate(ctx context.Context, m *Mutation[model.CreateProductCommand, int], form model.ProductForm) (int, error) {
	if err := form.Validate(); err != nil {
		return 0, &SubmitError{Message: FailureMessage(err, MsgCreateFailed), Err: err}
	}
	id, err := m.Unwrap(ctx, form.CreateCommand())
	if err != nil {
		return 0, &SubmitError{Message: FailureMessage(err, MsgCreateFailed), Err: err}
	}
	return id, nil
}

// SubmitUpdate validates form and, if it passes, updates product id.
func SubmitUpdate(ctx context.Context, m *Mutation[api.UpdateProductArg, api.Ack], id int, form model.ProductForm) error {
	if err := form.Validate(); err != nil {
		return &SubmitError{Message: FailureMessage(err, MsgUpdateFailed), Err: err}
	}
	_, err := m.Unwrap(ctx, api.UpdateProductArg{ID: id, Command: form.UpdateCommand()})
	if err != nil {
		return &SubmitError{Message: FailureMessage(err, MsgUpdateFailed), Err: err}
	}
	return nil
}

// ScheduleRedirect calls fn after delay unless the returned cancel function
// runs first. Cancel reports whether it stopped the call.
func ScheduleRedirect(delay time.Duration, fn func()) (cancel func() bool) {
	return time.AfterFunc(delay, fn).Stop
}
