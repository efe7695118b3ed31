package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// BackendName identifies this engine in logs, errors and exports.
const BackendName = "in_memory"

var errNotLoaded = errors.New("snapshot not loaded")

type EngineParam struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

// Engine computes the four KPIs over in-memory columnar tables with explicit
// grouping and join operations. No persistence; tables are rebuilt from the
// snapshot on every Load.
type Engine struct {
	log    *zap.Logger
	params kpidomain.Params

	customers *customerTable
	orders    *orderTable
	items     *itemTable
	ref       time.Time
}

func NewEngine(p EngineParam) *Engine {
	return &Engine{
		log:    p.Log.Named("kpi.memory"),
		params: kpidomain.Params{WindowDays: p.Cfg.LastNDays, TopN: p.Cfg.TopNCustomers},
	}
}

func (e *Engine) Name() string { return BackendName }

func (e *Engine) Load(ctx context.Context, snap *snapshotdomain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return &kpidomain.BackendLoadError{Backend: BackendName, Err: err}
	}
	if snap == nil {
		return &kpidomain.BackendLoadError{Backend: BackendName, Err: errNotLoaded}
	}

	e.customers = buildCustomerTable(snap.Customers)
	e.orders = buildOrderTable(snap.Orders)
	e.items = buildItemTable(snap.Items)
	e.ref = snap.ReferenceTime

	e.log.Info("tables built",
		zap.Int("customers", e.customers.len()),
		zap.Int("orders", e.orders.len()),
		zap.Int("order_items", e.items.len()),
	)
	return nil
}

func (e *Engine) loaded() bool {
	return e.customers != nil && e.orders != nil && e.items != nil
}

// RepeatCustomers groups orders by mobile number joined to customers and
// keeps those with two or more distinct orders.
func (e *Engine) RepeatCustomers(ctx context.Context) ([]kpidomain.RepeatCustomerRow, error) {
	if !e.loaded() {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRepeatCustomers, Err: errNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRepeatCustomers, Err: err}
	}

	type agg struct {
		count int
		spent float64
	}
	groups := make(map[int]*agg) // customer row index -> aggregate
	for i := range e.orders.ids {
		ci, ok := e.customers.byMobile[e.orders.mobiles[i]]
		if !ok {
			continue // orphan, cannot qualify
		}
		g := groups[ci]
		if g == nil {
			g = &agg{}
			groups[ci] = g
		}
		g.count++ // order table holds one row per distinct order_id
		g.spent += e.orders.amounts[i]
	}

	rows := make([]kpidomain.RepeatCustomerRow, 0, len(groups))
	for ci, g := range groups {
		if g.count < 2 {
			continue
		}
		rows = append(rows, kpidomain.RepeatCustomerRow{
			CustomerID:   e.customers.ids[ci],
			CustomerName: e.customers.names[ci],
			MobileNumber: e.customers.mobiles[ci],
			Region:       e.customers.regions[ci],
			OrderCount:   g.count,
			TotalSpent:   kpidomain.Round2(g.spent),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OrderCount != rows[j].OrderCount {
			return rows[i].OrderCount > rows[j].OrderCount
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
	return rows, nil
}

// MonthlyTrends buckets orders by (year, month) of the normalized timestamp.
func (e *Engine) MonthlyTrends(ctx context.Context) ([]kpidomain.MonthlyTrendRow, error) {
	if !e.loaded() {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIMonthlyTrends, Err: errNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIMonthlyTrends, Err: err}
	}

	type agg struct {
		orders  int
		items   int
		revenue float64
		mobiles map[string]struct{}
	}
	groups := make(map[string]*agg)
	for i := range e.orders.ids {
		month := e.orders.times[i].Format("2006-01")
		g := groups[month]
		if g == nil {
			g = &agg{mobiles: make(map[string]struct{})}
			groups[month] = g
		}
		g.orders++
		g.revenue += e.orders.amounts[i]
		g.mobiles[e.orders.mobiles[i]] = struct{}{}
		g.items += len(e.items.byOrderID[e.orders.ids[i]])
	}

	rows := make([]kpidomain.MonthlyTrendRow, 0, len(groups))
	for month, g := range groups {
		avg := 0.0
		if g.orders > 0 {
			avg = g.revenue / float64(g.orders)
		}
		rows = append(rows, kpidomain.MonthlyTrendRow{
			Month:           month,
			OrderCount:      g.orders,
			TotalItems:      g.items,
			TotalRevenue:    kpidomain.Round2(g.revenue),
			AvgOrderValue:   kpidomain.Round2(avg),
			UniqueCustomers: len(g.mobiles),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}

// RegionalRevenue joins orders to customers via mobile number; orphans land
// in the Unknown region instead of being dropped.
func (e *Engine) RegionalRevenue(ctx context.Context) ([]kpidomain.RegionalRevenueRow, error) {
	if !e.loaded() {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRegionalRevenue, Err: errNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRegionalRevenue, Err: err}
	}

	type agg struct {
		revenue   float64
		orders    int
		customers map[string]struct{}
	}
	groups := make(map[string]*agg)
	for i := range e.orders.ids {
		region := kpidomain.UnknownRegion
		customerID := ""
		if ci, ok := e.customers.byMobile[e.orders.mobiles[i]]; ok {
			region = e.customers.regions[ci]
			customerID = e.customers.ids[ci]
		}
		g := groups[region]
		if g == nil {
			g = &agg{customers: make(map[string]struct{})}
			groups[region] = g
		}
		g.revenue += e.orders.amounts[i]
		g.orders++
		if customerID != "" {
			g.customers[customerID] = struct{}{}
		}
	}

	rows := make([]kpidomain.RegionalRevenueRow, 0, len(groups))
	for region, g := range groups {
		rows = append(rows, kpidomain.RegionalRevenueRow{
			Region:        region,
			TotalRevenue:  kpidomain.Round2(g.revenue),
			OrderCount:    g.orders,
			CustomerCount: len(g.customers),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRevenue != rows[j].TotalRevenue {
			return rows[i].TotalRevenue > rows[j].TotalRevenue
		}
		return rows[i].Region < rows[j].Region
	})
	return rows, nil
}

// TopCustomers ranks customers by spend inside [ref - WindowDays, ref], both
// bounds inclusive, where ref is the snapshot's maximum order timestamp.
func (e *Engine) TopCustomers(ctx context.Context) ([]kpidomain.TopCustomerRow, error) {
	if !e.loaded() {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPITopCustomers, Err: errNotLoaded}
	}
	if err := ctx.Err(); err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPITopCustomers, Err: err}
	}
	if e.ref.IsZero() {
		return []kpidomain.TopCustomerRow{}, nil
	}

	// Fixed-duration window so both engines agree regardless of DST shifts.
	start := e.ref.Add(-time.Duration(e.params.WindowDays) * 24 * time.Hour)

	type agg struct {
		count int
		spent float64
	}
	groups := make(map[int]*agg)
	for i := range e.orders.ids {
		ts := e.orders.times[i]
		if ts.Before(start) || ts.After(e.ref) {
			continue
		}
		ci, ok := e.customers.byMobile[e.orders.mobiles[i]]
		if !ok {
			continue
		}
		g := groups[ci]
		if g == nil {
			g = &agg{}
			groups[ci] = g
		}
		g.count++
		g.spent += e.orders.amounts[i]
	}

	rows := make([]kpidomain.TopCustomerRow, 0, len(groups))
	for ci, g := range groups {
		rows = append(rows, kpidomain.TopCustomerRow{
			CustomerID:   e.customers.ids[ci],
			CustomerName: e.customers.names[ci],
			MobileNumber: e.customers.mobiles[ci],
			Region:       e.customers.regions[ci],
			OrderCount:   g.count,
			TotalSpent:   kpidomain.Round2(g.spent),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalSpent != rows[j].TotalSpent {
			return rows[i].TotalSpent > rows[j].TotalSpent
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
	if len(rows) > e.params.TopN {
		rows = rows[:e.params.TopN]
	}
	return rows, nil
}
