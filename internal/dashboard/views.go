package dashboard

import (
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

// ListView is what the product table renders for one list snapshot.
type ListView struct {
	Products   []model.Product
	Loading    bool
	Refreshing bool
	// Error is set when the list failed to load; it replaces the table.
	Error string
	Empty bool
}

func NewListView(s State[[]model.Product]) ListView {
	switch {
	case s.IsLoading():
		return ListView{Loading: true}
	case s.IsError():
		return ListView{Error: MsgLoadFailed}
	}
	return ListView{
		Products:   s.Data,
		Refreshing: s.Fetching || s.Stale,
		Empty:      len(s.Data) == 0,
	}
}

// EditView is what the edit screen renders for product id. The product is
// looked up in the cached list.
type EditView struct {
	Product model.Product
	Form    model.ProductForm
	Loading bool
	Error   string
}

func NewEditView(s State[[]model.Product], id int) EditView {
	if s.IsLoading() {
		return EditView{Loading: true}
	}
	if s.IsError() {
		return EditView{Error: MsgNotFound}
	}
	p, err := model.FindProduct(s.Data, id)
	if err != nil {
		return EditView{Error: MsgNotFound}
	}
	return EditView{Product: p, Form: model.FormFromProduct(p)}
}
