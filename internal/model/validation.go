package model

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLength = 100
	MaxSKULength  = 50
)

// Categories is the fixed set of product categories offered by the form.
var Categories = []string{
	"Electronics",
	"Clothing",
	"Books",
	"Home & Garden",
	"Sports",
	"Toys",
	"Food & Beverages",
	"Health & Beauty",
	"Automotive",
	"Other",
}

// IsCategory reports whether c is one of Categories.
func IsCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// ProductForm is the raw input of the create and edit forms. Stock is a
// float so that fractional input can be rejected rather than truncated.
type ProductForm struct {
	Name     string
	SKU      string
	Stock    float64
	Price    string
	Category string
}

// FormFromProduct pre-fills an edit form.
func FormFromProduct(p Product) ProductForm {
	return ProductForm{
		Name:     p.Name,
		SKU:      p.SKU,
		Stock:    float64(p.Stock),
		Price:    p.Price,
		Category: p.Category,
	}
}

// FieldError is a single client-side validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is raised before any request is sent. Fields are listed
// in form order with at most one message per field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// First returns the first field message, or "" if there is none.
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// Message returns the message recorded for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Validate checks the form. It returns a *ValidationError or nil.
func (f ProductForm) Validate() error {
	ve := &ValidationError{}
	add := func(field, msg string) {
		ve.Fields = append(ve.Fields, FieldError{Field: field, Message: msg})
	}

	switch n := utf8.RuneCountInString(f.Name); {
	case n == 0:
		add("name", "Product name is required")
	case n > MaxNameLength:
		add("name", "Product name must be less than 100 characters")
	}

	switch n := utf8.RuneCountInString(f.SKU); {
	case n == 0:
		add("sku", "SKU is required")
	case n > MaxSKULength:
		add("sku", "SKU must be less than 50 characters")
	}

	switch {
	case math.IsNaN(f.Stock) || math.IsInf(f.Stock, 0):
		add("stock", "Stock must be a number")
	case f.Stock < 0:
		add("stock", "Stock must be 0 or greater")
	case f.Stock != math.Trunc(f.Stock) || f.Stock > math.MaxInt32:
		add("stock", "Stock must be a whole number")
	}

	if _, err := ParsePrice(f.Price); err != nil {
		add("price", "Price must be a valid number 0 or greater")
	}

	switch {
	case f.Category == "":
		add("category", "Category is required")
	case !IsCategory(f.Category):
		add("category", "Category must be one of the listed categories")
	}

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// ParsePrice parses a non-negative decimal price.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errNegativePrice
	}
	return d, nil
}

// CreateCommand converts a validated form into a create request body.
func (f ProductForm) CreateCommand() CreateProductCommand {
	return CreateProductCommand{
		Name:     f.Name,
		SKU:      f.SKU,
		Stock:    int(f.Stock),
		Price:    strings.TrimSpace(f.Price),
		Category: f.Category,
	}
}

// UpdateCommand converts a validated form into an update request body.
func (f ProductForm) UpdateCommand() UpdateProductCommand {
	return UpdateProductCommand(f.CreateCommand())
}
