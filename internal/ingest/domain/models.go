package domain

import "context"

// RawCustomer is one customer row exactly as read from the source file.
// All fields are kept as trimmed strings; parsing and cleaning belong to the
// Normalizer.
type RawCustomer struct {
	CustomerID   string `validate:"required"`
	CustomerName string
	MobileNumber string `validate:"required"`
	Region       string
}

// RawLineItem is one SKU line item of a raw order.
type RawLineItem struct {
	SKUID    string `validate:"required"`
	SKUCount string `validate:"required"`
}

// RawOrder is one order element from the hierarchical source, with its nested
// line items already flattened into Items by the reader.
type RawOrder struct {
	OrderID       string `validate:"required"`
	MobileNumber  string `validate:"required"`
	OrderDateTime string `validate:"required"`
	TotalAmount   string `validate:"required"`
	Items         []RawLineItem
}

// CustomerReader reads the columnar customer source.
type CustomerReader interface {
	Read(ctx context.Context, path string) ([]RawCustomer, error)
}

// OrderReader reads the hierarchical order source.
type OrderReader interface {
	Read(ctx context.Context, path string) ([]RawOrder, error)
}
