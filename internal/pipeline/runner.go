package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/export"
	ingestdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/domain"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/memory"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/relational"
	normalizedomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/normalize/domain"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/observability/metrics"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// amountEpsilon absorbs float representation noise when comparing monetary
// values across engines. Anything at or above half a paisa is a real mismatch.
const amountEpsilon = 0.005

// BackendStatus is the outcome of one engine's load-and-compute leg.
type BackendStatus struct {
	Backend string             `json:"backend"`
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Results *kpidomain.Results `json:"-"`
}

// RunSummary is what one pipeline run reports back to the caller.
type RunSummary struct {
	RunID             string                   `json:"run_id"`
	CustomersRead     int                      `json:"customers_read"`
	CustomersAccepted int                      `json:"customers_accepted"`
	OrdersRead        int                      `json:"orders_read"`
	OrdersAccepted    int                      `json:"orders_accepted"`
	Issues            int                      `json:"issues"`
	Backends          map[string]BackendStatus `json:"backends"`
	Comparison        []export.ComparisonRow   `json:"comparison,omitempty"`
}

// FailedBackends lists the backends that failed to load or compute, sorted for
// stable output.
func (s *RunSummary) FailedBackends() []string {
	var failed []string
	for name, status := range s.Backends {
		if !status.OK {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// Matched reports whether both engines produced results and every KPI agreed.
func (s *RunSummary) Matched() bool {
	if len(s.Comparison) == 0 {
		return false
	}
	for _, row := range s.Comparison {
		if !row.Match {
			return false
		}
	}
	return true
}

type Param struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Node       *snowflake.Node
	Customers  ingestdomain.CustomerReader
	Orders     ingestdomain.OrderReader
	Normalizer normalizedomain.Service
	Relational *relational.Engine
	Memory     *memory.Engine
	Sink       *export.Sink
	Metrics    *metrics.Metrics `optional:"true"`
}

// Runner drives one end-to-end run: read both sources, normalize into a
// snapshot, feed the snapshot to both KPI engines, compare their outputs and
// export everything as CSV.
type Runner struct {
	log        *zap.Logger
	cfg        config.Config
	node       *snowflake.Node
	customers  ingestdomain.CustomerReader
	orders     ingestdomain.OrderReader
	normalizer normalizedomain.Service
	engines    []kpidomain.Engine
	sink       *export.Sink
	metrics    *metrics.Metrics
}

func NewRunner(p Param) *Runner {
	return &Runner{
		log:        p.Log.Named("pipeline"),
		cfg:        p.Cfg,
		node:       p.Node,
		customers:  p.Customers,
		orders:     p.Orders,
		normalizer: p.Normalizer,
		engines:    []kpidomain.Engine{p.Relational, p.Memory},
		sink:       p.Sink,
		metrics:    p.Metrics,
	}
}

// Run executes one pipeline run. An unreadable source is fatal; a failing
// backend is isolated so the other backend still produces results.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	runID := r.node.Generate().String()
	log := r.log.With(zap.String("run_id", runID))
	log.Info("run started",
		zap.String("customers_csv", r.cfg.CustomersCSVPath),
		zap.String("orders_xml", r.cfg.OrdersXMLPath),
	)

	rawCustomers, err := r.customers.Read(ctx, r.cfg.CustomersCSVPath)
	if err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	rawOrders, err := r.orders.Read(ctx, r.cfg.OrdersXMLPath)
	if err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}

	// Ingestion and rejection metrics are recorded inside the normalizer, where
	// kept-but-flagged records (orphans, duplicate keys) are distinguishable
	// from real rejections.
	snap, report, err := r.normalizer.Normalize(ctx, rawCustomers, rawOrders)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	summary := &RunSummary{
		RunID:             runID,
		CustomersRead:     report.CustomersRead,
		CustomersAccepted: report.CustomersAccepted,
		OrdersRead:        report.OrdersRead,
		OrdersAccepted:    report.OrdersAccepted,
		Issues:            len(report.Issues),
		Backends:          make(map[string]BackendStatus, len(r.engines)),
	}

	for _, eng := range r.engines {
		summary.Backends[eng.Name()] = r.runBackend(ctx, log, eng, snap)
	}

	for name, status := range summary.Backends {
		if !status.OK {
			continue
		}
		if err := r.sink.WriteResults(name, *status.Results); err != nil {
			return nil, fmt.Errorf("export %s results: %w", name, err)
		}
	}

	rel, mem := summary.Backends[relational.BackendName], summary.Backends[memory.BackendName]
	if rel.OK && mem.OK {
		summary.Comparison = compareResults(*rel.Results, *mem.Results)
		if err := r.sink.WriteComparison(summary.Comparison); err != nil {
			return nil, fmt.Errorf("export comparison: %w", err)
		}
	}

	if !rel.OK && !mem.OK {
		return summary, fmt.Errorf("all backends failed: %s; %s", rel.Error, mem.Error)
	}

	log.Info("run finished",
		zap.Int("customers_accepted", summary.CustomersAccepted),
		zap.Int("orders_accepted", summary.OrdersAccepted),
		zap.Int("issues", summary.Issues),
		zap.Bool("backends_match", summary.Matched()),
	)
	return summary, nil
}

// runBackend loads the snapshot into one engine and computes all four KPIs.
// Any failure marks only this backend as failed.
func (r *Runner) runBackend(ctx context.Context, log *zap.Logger, eng kpidomain.Engine, snap *snapshotdomain.Snapshot) BackendStatus {
	name := eng.Name()

	if err := eng.Load(ctx, snap); err != nil {
		log.Error("backend load failed", zap.String("backend", name), zap.Error(err))
		r.metrics.RecordBackendFailure(name, "load")
		return BackendStatus{Backend: name, Error: err.Error()}
	}

	res := &kpidomain.Results{}
	steps := []struct {
		kpi     string
		compute func() error
	}{
		{kpidomain.KPIRepeatCustomers, func() (err error) { res.RepeatCustomers, err = eng.RepeatCustomers(ctx); return }},
		{kpidomain.KPIMonthlyTrends, func() (err error) { res.MonthlyTrends, err = eng.MonthlyTrends(ctx); return }},
		{kpidomain.KPIRegionalRevenue, func() (err error) { res.RegionalRevenue, err = eng.RegionalRevenue(ctx); return }},
		{kpidomain.KPITopCustomers, func() (err error) { res.TopCustomers, err = eng.TopCustomers(ctx); return }},
	}
	for _, step := range steps {
		started := time.Now()
		if err := step.compute(); err != nil {
			log.Error("kpi computation failed",
				zap.String("backend", name),
				zap.String("kpi", step.kpi),
				zap.Error(err),
			)
			r.metrics.RecordBackendFailure(name, "compute")
			return BackendStatus{Backend: name, Error: err.Error()}
		}
		r.metrics.ObserveKPIDuration(name, step.kpi, time.Since(started).Seconds())
	}

	return BackendStatus{Backend: name, OK: true, Results: res}
}

func compareResults(a, b kpidomain.Results) []export.ComparisonRow {
	return []export.ComparisonRow{
		compareRow(kpidomain.KPIRepeatCustomers, len(a.RepeatCustomers), len(b.RepeatCustomers), repeatDiff(a.RepeatCustomers, b.RepeatCustomers)),
		compareRow(kpidomain.KPIMonthlyTrends, len(a.MonthlyTrends), len(b.MonthlyTrends), monthlyDiff(a.MonthlyTrends, b.MonthlyTrends)),
		compareRow(kpidomain.KPIRegionalRevenue, len(a.RegionalRevenue), len(b.RegionalRevenue), regionalDiff(a.RegionalRevenue, b.RegionalRevenue)),
		compareRow(kpidomain.KPITopCustomers, len(a.TopCustomers), len(b.TopCustomers), topDiff(a.TopCustomers, b.TopCustomers)),
	}
}

func compareRow(kpi string, lenA, lenB int, diff string) export.ComparisonRow {
	return export.ComparisonRow{
		KPI:         kpi,
		Match:       diff == "",
		RowCountA:   lenA,
		RowCountB:   lenB,
		Discrepancy: diff,
	}
}

func amountsEqual(a, b float64) bool {
	return math.Abs(a-b) < amountEpsilon
}

func repeatDiff(a, b []kpidomain.RepeatCustomerRow) string {
	if len(a) != len(b) {
		return fmt.Sprintf("row count %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.CustomerID != y.CustomerID || x.OrderCount != y.OrderCount || !amountsEqual(x.TotalSpent, y.TotalSpent) {
			return fmt.Sprintf("row %d: %s/%d/%.2f vs %s/%d/%.2f", i, x.CustomerID, x.OrderCount, x.TotalSpent, y.CustomerID, y.OrderCount, y.TotalSpent)
		}
	}
	return ""
}

func monthlyDiff(a, b []kpidomain.MonthlyTrendRow) string {
	if len(a) != len(b) {
		return fmt.Sprintf("row count %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Month != y.Month || x.OrderCount != y.OrderCount || x.TotalItems != y.TotalItems ||
			x.UniqueCustomers != y.UniqueCustomers ||
			!amountsEqual(x.TotalRevenue, y.TotalRevenue) || !amountsEqual(x.AvgOrderValue, y.AvgOrderValue) {
			return fmt.Sprintf("row %d: month %s vs %s", i, x.Month, y.Month)
		}
	}
	return ""
}

func regionalDiff(a, b []kpidomain.RegionalRevenueRow) string {
	if len(a) != len(b) {
		return fmt.Sprintf("row count %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Region != y.Region || x.OrderCount != y.OrderCount || x.CustomerCount != y.CustomerCount ||
			!amountsEqual(x.TotalRevenue, y.TotalRevenue) {
			return fmt.Sprintf("row %d: region %s/%.2f vs %s/%.2f", i, x.Region, x.TotalRevenue, y.Region, y.TotalRevenue)
		}
	}
	return ""
}

func topDiff(a, b []kpidomain.TopCustomerRow) string {
	if len(a) != len(b) {
		return fmt.Sprintf("row count %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.CustomerID != y.CustomerID || x.OrderCount != y.OrderCount || !amountsEqual(x.TotalSpent, y.TotalSpent) {
			return fmt.Sprintf("row %d: %s/%.2f vs %s/%.2f", i, x.CustomerID, x.TotalSpent, y.CustomerID, y.TotalSpent)
		}
	}
	return ""
}
