package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	pkgdb "github.com/Chloy02/akasa-air-data-pipeline-task/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackendName identifies this engine in logs, errors and exports.
const BackendName = "relational"

const insertBatchSize = 500

type EngineParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

// Engine materializes the snapshot into normalized tables and computes each
// KPI as a single declarative aggregation query.
type Engine struct {
	db     *gorm.DB
	log    *zap.Logger
	params kpidomain.Params
}

func NewEngine(p EngineParam) *Engine {
	return &Engine{
		db:     p.DB,
		log:    p.Log.Named("kpi.relational"),
		params: kpidomain.Params{WindowDays: p.Cfg.LastNDays, TopN: p.Cfg.TopNCustomers},
	}
}

func (e *Engine) Name() string { return BackendName }

// Load replaces the table contents with the snapshot inside one all-or-nothing
// transaction. A failure partway through rolls everything back, leaving the
// store in its pre-run state. Unique-key violations are rejected, not merged.
func (e *Engine) Load(ctx context.Context, snap *snapshotdomain.Snapshot) error {
	if snap == nil {
		return &kpidomain.BackendLoadError{Backend: BackendName, Err: fmt.Errorf("nil snapshot")}
	}

	if err := e.db.WithContext(ctx).AutoMigrate(&customerRow{}, &orderRow{}, &orderItemRow{}); err != nil {
		return &kpidomain.BackendLoadError{Backend: BackendName, Err: fmt.Errorf("migrate: %w", err)}
	}

	customers := make([]customerRow, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		customers = append(customers, customerRow{
			CustomerID:   c.CustomerID,
			CustomerName: c.CustomerName,
			MobileNumber: c.MobileNumber,
			Region:       c.Region,
		})
	}
	orders := make([]orderRow, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		orders = append(orders, orderRow{
			OrderID:       o.OrderID,
			MobileNumber:  o.MobileNumber,
			OrderDateTime: o.OrderDateTime,
			OrderTSUnix:   o.OrderDateTime.Unix(),
			MonthKey:      o.OrderDateTime.Format("2006-01"),
			TotalAmount:   o.TotalAmount,
		})
	}
	items := make([]orderItemRow, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, orderItemRow{
			OrderID:  it.OrderID,
			SKUID:    it.SKUID,
			SKUCount: it.SKUCount,
		})
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Child tables first so the wipe never strands line items.
		if err := tx.Exec("DELETE FROM order_items").Error; err != nil {
			return fmt.Errorf("wipe order_items: %w", err)
		}
		if err := tx.Exec("DELETE FROM orders").Error; err != nil {
			return fmt.Errorf("wipe orders: %w", err)
		}
		if err := tx.Exec("DELETE FROM customers").Error; err != nil {
			return fmt.Errorf("wipe customers: %w", err)
		}

		if len(customers) > 0 {
			if err := tx.CreateInBatches(customers, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert customers: %w", err)
			}
		}
		if len(orders) > 0 {
			if err := tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert orders: %w", err)
			}
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert order_items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			err = fmt.Errorf("uniqueness violation: %w", err)
		}
		return &kpidomain.BackendLoadError{Backend: BackendName, Err: err}
	}

	e.log.Info("snapshot materialized",
		zap.Int("customers", len(customers)),
		zap.Int("orders", len(orders)),
		zap.Int("order_items", len(items)),
	)
	return nil
}

func (e *Engine) RepeatCustomers(ctx context.Context) ([]kpidomain.RepeatCustomerRow, error) {
	var scanned []struct {
		CustomerID   string
		CustomerName string
		MobileNumber string
		Region       string
		OrderCount   int
		TotalSpent   float64
	}
	err := e.db.WithContext(ctx).Raw(`
		SELECT c.customer_id,
		       c.customer_name,
		       c.mobile_number,
		       c.region,
		       COUNT(DISTINCT o.order_id) AS order_count,
		       SUM(o.total_amount)        AS total_spent
		FROM customers c
		JOIN orders o ON o.mobile_number = c.mobile_number
		GROUP BY c.customer_id, c.customer_name, c.mobile_number, c.region
		HAVING COUNT(DISTINCT o.order_id) >= 2
		ORDER BY order_count DESC, c.customer_id ASC`).
		Scan(&scanned).Error
	if err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRepeatCustomers, Err: err}
	}

	rows := make([]kpidomain.RepeatCustomerRow, 0, len(scanned))
	for _, r := range scanned {
		rows = append(rows, kpidomain.RepeatCustomerRow{
			CustomerID:   r.CustomerID,
			CustomerName: r.CustomerName,
			MobileNumber: r.MobileNumber,
			Region:       r.Region,
			OrderCount:   r.OrderCount,
			TotalSpent:   kpidomain.Round2(r.TotalSpent),
		})
	}
	return rows, nil
}

func (e *Engine) MonthlyTrends(ctx context.Context) ([]kpidomain.MonthlyTrendRow, error) {
	var scanned []struct {
		Month           string
		OrderCount      int
		TotalItems      int
		TotalRevenue    float64
		UniqueCustomers int
	}
	err := e.db.WithContext(ctx).Raw(`
		SELECT m.month_key                  AS month,
		       m.order_count,
		       COALESCE(i.total_items, 0)   AS total_items,
		       m.total_revenue,
		       m.unique_customers
		FROM (
			SELECT month_key,
			       COUNT(DISTINCT order_id)      AS order_count,
			       SUM(total_amount)             AS total_revenue,
			       COUNT(DISTINCT mobile_number) AS unique_customers
			FROM orders
			GROUP BY month_key
		) m
		LEFT JOIN (
			SELECT o.month_key AS month_key, COUNT(oi.id) AS total_items
			FROM order_items oi
			JOIN orders o ON o.order_id = oi.order_id
			GROUP BY o.month_key
		) i ON i.month_key = m.month_key
		ORDER BY m.month_key ASC`).
		Scan(&scanned).Error
	if err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIMonthlyTrends, Err: err}
	}

	rows := make([]kpidomain.MonthlyTrendRow, 0, len(scanned))
	for _, r := range scanned {
		avg := 0.0
		if r.OrderCount > 0 {
			avg = r.TotalRevenue / float64(r.OrderCount)
		}
		rows = append(rows, kpidomain.MonthlyTrendRow{
			Month:           r.Month,
			OrderCount:      r.OrderCount,
			TotalItems:      r.TotalItems,
			TotalRevenue:    kpidomain.Round2(r.TotalRevenue),
			AvgOrderValue:   kpidomain.Round2(avg),
			UniqueCustomers: r.UniqueCustomers,
		})
	}
	return rows, nil
}

func (e *Engine) RegionalRevenue(ctx context.Context) ([]kpidomain.RegionalRevenueRow, error) {
	var scanned []struct {
		Region        string
		TotalRevenue  float64
		OrderCount    int
		CustomerCount int
	}
	err := e.db.WithContext(ctx).Raw(`
		SELECT COALESCE(c.region, ?)          AS region,
		       SUM(o.total_amount)            AS total_revenue,
		       COUNT(DISTINCT o.order_id)     AS order_count,
		       COUNT(DISTINCT c.customer_id)  AS customer_count
		FROM orders o
		LEFT JOIN customers c ON c.mobile_number = o.mobile_number
		GROUP BY COALESCE(c.region, ?)`,
		kpidomain.UnknownRegion, kpidomain.UnknownRegion).
		Scan(&scanned).Error
	if err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPIRegionalRevenue, Err: err}
	}

	rows := make([]kpidomain.RegionalRevenueRow, 0, len(scanned))
	for _, r := range scanned {
		rows = append(rows, kpidomain.RegionalRevenueRow{
			Region:        r.Region,
			TotalRevenue:  kpidomain.Round2(r.TotalRevenue),
			OrderCount:    r.OrderCount,
			CustomerCount: r.CustomerCount,
		})
	}
	// Sort on the rounded value: ordering on the raw SUM would let sub-rounding
	// noise in the float sums rank regions differently than the other engine.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRevenue != rows[j].TotalRevenue {
			return rows[i].TotalRevenue > rows[j].TotalRevenue
		}
		return rows[i].Region < rows[j].Region
	})
	return rows, nil
}

func (e *Engine) TopCustomers(ctx context.Context) ([]kpidomain.TopCustomerRow, error) {
	// Reference time is the maximum order timestamp in the snapshot, not
	// wall-clock now, so results stay reproducible for a fixed fixture.
	var ref sql.NullInt64
	if err := e.db.WithContext(ctx).
		Raw(`SELECT MAX(order_ts_unix) FROM orders`).
		Scan(&ref).Error; err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPITopCustomers, Err: err}
	}
	if !ref.Valid {
		return []kpidomain.TopCustomerRow{}, nil
	}
	start := ref.Int64 - int64(e.params.WindowDays)*24*3600

	var scanned []struct {
		CustomerID   string
		CustomerName string
		MobileNumber string
		Region       string
		OrderCount   int
		TotalSpent   float64
	}
	err := e.db.WithContext(ctx).Raw(`
		SELECT c.customer_id,
		       c.customer_name,
		       c.mobile_number,
		       c.region,
		       COUNT(DISTINCT o.order_id) AS order_count,
		       SUM(o.total_amount)        AS total_spent
		FROM orders o
		JOIN customers c ON c.mobile_number = o.mobile_number
		WHERE o.order_ts_unix >= ? AND o.order_ts_unix <= ?
		GROUP BY c.customer_id, c.customer_name, c.mobile_number, c.region`,
		start, ref.Int64).
		Scan(&scanned).Error
	if err != nil {
		return nil, &kpidomain.BackendComputeError{Backend: BackendName, KPI: kpidomain.KPITopCustomers, Err: err}
	}

	rows := make([]kpidomain.TopCustomerRow, 0, len(scanned))
	for _, r := range scanned {
		rows = append(rows, kpidomain.TopCustomerRow{
			CustomerID:   r.CustomerID,
			CustomerName: r.CustomerName,
			MobileNumber: r.MobileNumber,
			Region:       r.Region,
			OrderCount:   r.OrderCount,
			TotalSpent:   kpidomain.Round2(r.TotalSpent),
		})
	}
	// Rank and truncate on the rounded value in Go. A SQL ORDER BY + LIMIT on
	// the raw SUM could admit a different customer at the top-N boundary than
	// the other engine when two sums round to the same amount.
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
