package domain

import (
	"context"
	"math"

	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
)

// KPI names, used in logs, metrics labels and export file names.
const (
	KPIRepeatCustomers = "repeat_customers"
	KPIMonthlyTrends   = "monthly_trends"
	KPIRegionalRevenue = "regional_revenue"
	KPITopCustomers    = "top_customers_30d"
)

// UnknownRegion is the bucket for orders whose mobile number resolves to no
// customer in the snapshot.
const UnknownRegion = "Unknown"

// Params configures the KPI computations shared by both engines.
type Params struct {
	// WindowDays is the "last N days" window for the top-customers KPI,
	// anchored at the snapshot's reference time.
	WindowDays int
	// TopN caps the top-customers output.
	TopN int
}

// RepeatCustomerRow is one customer with two or more distinct orders.
// Ordered by OrderCount descending, CustomerID ascending on ties.
type RepeatCustomerRow struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	MobileNumber string  `json:"mobile_number"`
	Region       string  `json:"region"`
	OrderCount   int     `json:"order_count"`
	TotalSpent   float64 `json:"total_spent"`
}

// MonthlyTrendRow is one (year, month) bucket in the normalized timezone.
// Ordered chronologically ascending.
type MonthlyTrendRow struct {
	Month           string  `json:"month"` // YYYY-MM
	OrderCount      int     `json:"order_count"`
	TotalItems      int     `json:"total_items"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	UniqueCustomers int     `json:"unique_customers"`
}

// RegionalRevenueRow is one region bucket; orphan orders land in
// UnknownRegion. Ordered by TotalRevenue descending, Region ascending on ties.
type RegionalRevenueRow struct {
	Region        string  `json:"region"`
	TotalRevenue  float64 `json:"total_revenue"`
	OrderCount    int     `json:"order_count"`
	CustomerCount int     `json:"customer_count"`
}

// TopCustomerRow is one customer ranked by spend inside the last-N-days
// window. Ordered by TotalSpent descending, CustomerID ascending on ties.
type TopCustomerRow struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	MobileNumber string  `json:"mobile_number"`
	Region       string  `json:"region"`
	OrderCount   int     `json:"order_count"`
	TotalSpent   float64 `json:"total_spent"`
}

// Results bundles the four KPI outputs of one engine run.
type Results struct {
	RepeatCustomers []RepeatCustomerRow
	MonthlyTrends   []MonthlyTrendRow
	RegionalRevenue []RegionalRevenueRow
	TopCustomers    []TopCustomerRow
}

// Engine is the KPI computation contract implemented independently by the
// relational and in-memory backends. Both must produce identical row sets for
// the same snapshot. An empty filtered set yields an empty slice, not an error.
type Engine interface {
	Name() string
	Load(ctx context.Context, snap *snapshotdomain.Snapshot) error
	RepeatCustomers(ctx context.Context) ([]RepeatCustomerRow, error)
	MonthlyTrends(ctx context.Context) ([]MonthlyTrendRow, error)
	RegionalRevenue(ctx context.Context) ([]RegionalRevenueRow, error)
	TopCustomers(ctx context.Context) ([]TopCustomerRow, error)
}

// Round2 rounds a monetary value to two decimals. Both engines apply it at row
// construction so outputs compare equal.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
