// Package parity holds the shared fixtures and the cross-engine equivalence
// suite: both KPI engines must produce identical row sets for the same
// snapshot, so the semantics are pinned here once instead of trusting each
// engine's independent logic.
package parity

import (
	"time"

	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
)

// Amounts in fixtures are quarter-valued so float sums are exact in either
// summation order.

func mustIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

// BaseSnapshot covers every KPI path: two repeat customers, two month
// buckets, three regions including the orphan bucket, a zero-order customer,
// and a multi-item order.
func BaseSnapshot() *snapshotdomain.Snapshot {
	loc := mustIST()
	orders := []snapshotdomain.Order{
		{OrderID: "O1", MobileNumber: "9876543210", OrderDateTime: at(loc, 2024, 1, 5, 10, 0), TotalAmount: 100.00},
		{OrderID: "O2", MobileNumber: "9876543210", OrderDateTime: at(loc, 2024, 1, 20, 11, 0), TotalAmount: 50.00},
		{OrderID: "O3", MobileNumber: "9123456789", OrderDateTime: at(loc, 2024, 1, 10, 9, 0), TotalAmount: 75.50},
		{OrderID: "O4", MobileNumber: "9123456789", OrderDateTime: at(loc, 2024, 3, 1, 12, 0), TotalAmount: 25.25},
		{OrderID: "O5", MobileNumber: "9000000001", OrderDateTime: at(loc, 2024, 3, 10, 8, 0), TotalAmount: 200.00},
		// Orphan: no customer carries this mobile.
		{OrderID: "O6", MobileNumber: "9999999999", OrderDateTime: at(loc, 2024, 3, 11, 10, 0), TotalAmount: 10.00, Orphan: true},
	}
	return &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9876543210", Region: "North"},
			{CustomerID: "C2", CustomerName: "Bob", MobileNumber: "9123456789", Region: "South"},
			{CustomerID: "C3", CustomerName: "Carol", MobileNumber: "9000000001", Region: "North"},
			// Zero orders: valid, excluded from revenue KPIs.
			{CustomerID: "C4", CustomerName: "Dave", MobileNumber: "9222222222", Region: "East"},
		},
		Orders: orders,
		Items: []snapshotdomain.OrderItem{
			{OrderID: "O1", SKUID: "SKU1", SKUCount: 2},
			{OrderID: "O1", SKUID: "SKU2", SKUCount: 1},
			{OrderID: "O1", SKUID: "SKU3", SKUCount: 4},
			{OrderID: "O2", SKUID: "SKU1", SKUCount: 1},
			{OrderID: "O3", SKUID: "SKU4", SKUCount: 2},
			{OrderID: "O4", SKUID: "SKU1", SKUCount: 1},
			{OrderID: "O5", SKUID: "SKU5", SKUCount: 1},
			{OrderID: "O6", SKUID: "SKU6", SKUCount: 1},
		},
		ReferenceTime: orders[5].OrderDateTime,
		Location:      loc,
	}
}

// AliceSnapshot is the worked scenario from the acceptance checklist: one
// customer, two January orders totalling 150.00.
func AliceSnapshot() *snapshotdomain.Snapshot {
	loc := mustIST()
	orders := []snapshotdomain.Order{
		{OrderID: "O1", MobileNumber: "9876543210", OrderDateTime: at(loc, 2024, 1, 5, 0, 0), TotalAmount: 100.00},
		{OrderID: "O2", MobileNumber: "9876543210", OrderDateTime: at(loc, 2024, 1, 20, 0, 0), TotalAmount: 50.00},
	}
	return &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9876543210", Region: "North"},
		},
		Orders:        orders,
		Items:         []snapshotdomain.OrderItem{{OrderID: "O1", SKUID: "SKU1", SKUCount: 1}, {OrderID: "O2", SKUID: "SKU1", SKUCount: 1}},
		ReferenceTime: orders[1].OrderDateTime,
		Location:      loc,
	}
}

// OrphanWindowSnapshot has only orphan orders inside the 30-day window, so
// the top-customers output must be empty while regional revenue still buckets
// them under Unknown.
func OrphanWindowSnapshot() *snapshotdomain.Snapshot {
	loc := mustIST()
	orders := []snapshotdomain.Order{
		{OrderID: "O1", MobileNumber: "9876543210", OrderDateTime: at(loc, 2023, 6, 1, 10, 0), TotalAmount: 40.00},
		{OrderID: "O2", MobileNumber: "9999999999", OrderDateTime: at(loc, 2024, 3, 1, 10, 0), TotalAmount: 20.00, Orphan: true},
	}
	return &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9876543210", Region: "North"},
		},
		Orders:        orders,
		Items:         []snapshotdomain.OrderItem{{OrderID: "O1", SKUID: "SKU1", SKUCount: 1}, {OrderID: "O2", SKUID: "SKU2", SKUCount: 1}},
		ReferenceTime: orders[1].OrderDateTime,
		Location:      loc,
	}
}

// EmptySnapshot has no entities at all.
func EmptySnapshot() *snapshotdomain.Snapshot {
	return &snapshotdomain.Snapshot{Location: mustIST()}
}
