// Package model defines domain types exchanged with the inventory API.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents the server's view of one inventory record.
type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Stock    int    `json:"stock"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// PriceDecimal parses the string-encoded price.
func (p Product) PriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(p.Price))
}

// CreateProductCommand is the body of a create request.
type CreateProductCommand struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Stock    int    `json:"stock"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// UpdateProductCommand is the body of an update request. The id travels in
// the path, never in the body.
type UpdateProductCommand struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Stock    int    `json:"stock"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// ValidationIssue is one entry of a server-side validation error list.
// Loc elements are strings or numbers.
type ValidationIssue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Field returns the last path element of Loc, which names the offending
// field for body validation errors.
func (v ValidationIssue) Field() string {
	if len(v.Loc) == 0 {
		return ""
	}
	return fmt.Sprint(v.Loc[len(v.Loc)-1])
}

// String renders the issue as "loc.path: msg".
func (v ValidationIssue) String() string {
	parts := make([]string, 0, len(v.Loc))
	for _, l := range v.Loc {
		parts = append(parts, fmt.Sprint(l))
	}
	if len(parts) == 0 {
		return v.Msg
	}
	return strings.Join(parts, ".") + ": " + v.Msg
}
