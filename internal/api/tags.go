package api

import (
	"encoding/json"
	"fmt"
)

// Tag groups cache entries for bulk invalidation.
type Tag string

const (
	TagProduct Tag = "PRODUCT"
)

// Operation names one endpoint.
type Operation string

const (
	OpGetProducts   Operation = "getProducts"
	OpCreateProduct Operation = "createProduct"
	OpUpdateProduct Operation = "updateProduct"
	OpDeleteProduct Operation = "deleteProduct"
)

// Kind separates cached reads from uncached writes.
type Kind int

const (
	KindQuery Kind = iota
	KindMutation
)

// TagSpec declares which tags an operation provides (queries) or
// invalidates (mutations).
type TagSpec struct {
	Kind        Kind
	Provides    []Tag
	Invalidates []Tag
}

var tagTable = map[Operation]TagSpec{
	OpGetProducts:   {Kind: KindQuery, Provides: []Tag{TagProduct}},
	OpCreateProduct: {Kind: KindMutation, Invalidates: []Tag{TagProduct}},
	OpUpdateProduct: {Kind: KindMutation, Invalidates: []Tag{TagProduct}},
	OpDeleteProduct: {Kind: KindMutation, Invalidates: []Tag{TagProduct}},
}

// Spec returns the tag declaration for op.
func Spec(op Operation) (TagSpec, bool) {
	s, ok := tagTable[op]
	return s, ok
}

// ProvidedTags returns the tags attached to cache entries of op.
func ProvidedTags(op Operation) []Tag {
	return tagTable[op].Provides
}

// InvalidatedTags returns the tags a successful op invalidates.
func InvalidatedTags(op Operation) []Tag {
	return tagTable[op].Invalidates
}

// QueryKey identifies one cache slot: the operation plus the canonical JSON
// encoding of its arguments. Comparable, so usable as a map key.
type QueryKey struct {
	Op   Operation
	Args string
}

// NewQueryKey builds the key for op called with args. A nil or empty
// struct argument encodes as "".
func NewQueryKey(op Operation, args any) QueryKey {
	if args == nil {
		return QueryKey{Op: op}
	}
	b, err := json.Marshal(args)
	if err != nil {
		// args are plain data structs; fall back to the Go syntax form
		return QueryKey{Op: op, Args: fmt.Sprintf("%#v", args)}
	}
	s := string(b)
	if s == "{}" || s == "null" {
		s = ""
	}
	return QueryKey{Op: op, Args: s}
}

func (k QueryKey) String() string {
	return string(k.Op) + "(" + k.Args + ")"
}
