package memory

import (
	"time"

	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
)

// The engine holds the snapshot as columnar tables: one slice per column plus
// hash indexes for the join paths. Rebuilt from the snapshot on every Load.

type customerTable struct {
	ids     []string
	names   []string
	mobiles []string
	regions []string

	byMobile map[string]int
}

func buildCustomerTable(customers []snapshotdomain.Customer) *customerTable {
	t := &customerTable{
		ids:      make([]string, 0, len(customers)),
		names:    make([]string, 0, len(customers)),
		mobiles:  make([]string, 0, len(customers)),
		regions:  make([]string, 0, len(customers)),
		byMobile: make(map[string]int, len(customers)),
	}
	for _, c := range customers {
		t.byMobile[c.MobileNumber] = len(t.ids)
		t.ids = append(t.ids, c.CustomerID)
		t.names = append(t.names, c.CustomerName)
		t.mobiles = append(t.mobiles, c.MobileNumber)
		t.regions = append(t.regions, c.Region)
	}
	return t
}

func (t *customerTable) len() int { return len(t.ids) }

type orderTable struct {
	ids     []string
	mobiles []string
	times   []time.Time
	amounts []float64

	byOrderID map[string]int
}

func buildOrderTable(orders []snapshotdomain.Order) *orderTable {
	t := &orderTable{
		ids:       make([]string, 0, len(orders)),
		mobiles:   make([]string, 0, len(orders)),
		times:     make([]time.Time, 0, len(orders)),
		amounts:   make([]float64, 0, len(orders)),
		byOrderID: make(map[string]int, len(orders)),
	}
	for _, o := range orders {
		t.byOrderID[o.OrderID] = len(t.ids)
		t.ids = append(t.ids, o.OrderID)
		t.mobiles = append(t.mobiles, o.MobileNumber)
		t.times = append(t.times, o.OrderDateTime)
		t.amounts = append(t.amounts, o.TotalAmount)
	}
	return t
}

func (t *orderTable) len() int { return len(t.ids) }

type itemTable struct {
	orderIDs []string
	skuIDs   []string
	counts   []int

	byOrderID map[string][]int
}

func buildItemTable(items []snapshotdomain.OrderItem) *itemTable {
	t := &itemTable{
		orderIDs:  make([]string, 0, len(items)),
		skuIDs:    make([]string, 0, len(items)),
		counts:    make([]int, 0, len(items)),
		byOrderID: make(map[string][]int, len(items)),
	}
	for _, it := range items {
		t.byOrderID[it.OrderID] = append(t.byOrderID[it.OrderID], len(t.orderIDs))
		t.orderIDs = append(t.orderIDs, it.OrderID)
		t.skuIDs = append(t.skuIDs, it.SKUID)
		t.counts = append(t.counts, it.SKUCount)
	}
	return t
}

func (t *itemTable) len() int { return len(t.orderIDs) }
