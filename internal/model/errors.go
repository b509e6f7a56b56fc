package model

import "errors"

// ErrNotFound is returned when a product id is not present in a product list.
var ErrNotFound = errors.New("product not found")

var errNegativePrice = errors.New("price must be 0 or greater")

// FindProduct locates id inside a fetched product list.
func FindProduct(products []Product, id int) (Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}
