package domain

import "time"

// Customer is a canonical customer record, independent of source encoding.
// Identified by CustomerID; MobileNumber is unique across the snapshot.
type Customer struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	MobileNumber string `json:"mobile_number"`
	Region       string `json:"region"`
}

// Order is a canonical order. TotalAmount is an order-level attribute and is
// counted exactly once per OrderID regardless of line items. OrderDateTime is
// already normalized to the snapshot's civil timezone.
type Order struct {
	OrderID       string    `json:"order_id"`
	MobileNumber  string    `json:"mobile_number"`
	OrderDateTime time.Time `json:"order_date_time"`
	TotalAmount   float64   `json:"total_amount"`

	// Orphan marks an order whose mobile number matches no customer in the
	// snapshot. Orphans are flagged, never dropped.
	Orphan bool `json:"orphan,omitempty"`
}

// OrderItem is one SKU line item belonging to exactly one Order.
type OrderItem struct {
	OrderID  string `json:"order_id"`
	SKUID    string `json:"sku_id"`
	SKUCount int    `json:"sku_count"`
}

// Snapshot is the immutable output of one Normalizer run. Both KPI engines
// receive the identical value; nothing mutates it after normalization.
type Snapshot struct {
	Customers []Customer
	Orders    []Order
	Items     []OrderItem

	// ReferenceTime is the maximum OrderDateTime observed, used as the upper
	// bound of the "last N days" window. Zero when the snapshot has no orders.
	ReferenceTime time.Time

	// Location is the civil timezone every timestamp was normalized to.
	Location *time.Location
}
