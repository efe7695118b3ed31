package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ComparisonRow records whether the two engines agreed on one KPI.
type ComparisonRow struct {
	KPI         string
	Match       bool
	RowCountA   int
	RowCountB   int
	Discrepancy string
}

type SinkParam struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

// Sink writes KPI results and the cross-engine comparison as CSV files under
// the configured results directory.
type Sink struct {
	log *zap.Logger
	dir string
}

func NewSink(p SinkParam) *Sink {
	return &Sink{
		log: p.Log.Named("export"),
		dir: p.Cfg.ResultsDir,
	}
}

// WriteResults writes one CSV per KPI for the named backend, e.g.
// results/relational_repeat_customers.csv. Files are overwritten on every run.
func (s *Sink) WriteResults(backend string, res kpidomain.Results) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir %s: %w", s.dir, err)
	}

	if err := s.writeCustomerRows(backend, kpidomain.KPIRepeatCustomers, repeatAsCustomerRows(res.RepeatCustomers)); err != nil {
		return err
	}
	if err := s.writeMonthlyTrends(backend, res.MonthlyTrends); err != nil {
		return err
	}
	if err := s.writeRegionalRevenue(backend, res.RegionalRevenue); err != nil {
		return err
	}
	if err := s.writeCustomerRows(backend, kpidomain.KPITopCustomers, topAsCustomerRows(res.TopCustomers)); err != nil {
		return err
	}

	s.log.Info("results exported", zap.String("backend", backend), zap.String("dir", s.dir))
	return nil
}

// WriteComparison writes the per-KPI agreement summary.
func (s *Sink) WriteComparison(rows []ComparisonRow) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir %s: %w", s.dir, err)
	}

	records := [][]string{{"kpi", "match", "rows_relational", "rows_in_memory", "discrepancy"}}
	for _, r := range rows {
		records = append(records, []string{
			r.KPI,
			strconv.FormatBool(r.Match),
			strconv.Itoa(r.RowCountA),
			strconv.Itoa(r.RowCountB),
			r.Discrepancy,
		})
	}
	return s.writeFile("comparison_summary.csv", records)
}

// customerKPIRow is the shared shape of the repeat-customers and top-customers
// exports.
type customerKPIRow struct {
	CustomerID   string
	CustomerName string
	MobileNumber string
	Region       string
	OrderCount   int
	TotalSpent   float64
}

func repeatAsCustomerRows(rows []kpidomain.RepeatCustomerRow) []customerKPIRow {
	out := make([]customerKPIRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, customerKPIRow(r))
	}
	return out
}

func topAsCustomerRows(rows []kpidomain.TopCustomerRow) []customerKPIRow {
	out := make([]customerKPIRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, customerKPIRow(r))
	}
	return out
}

func (s *Sink) writeCustomerRows(backend, kpi string, rows []customerKPIRow) error {
	records := [][]string{{"customer_id", "customer_name", "mobile_number", "region", "order_count", "total_spent"}}
	for _, r := range rows {
		records = append(records, []string{
			r.CustomerID,
			r.CustomerName,
			r.MobileNumber,
			r.Region,
			strconv.Itoa(r.OrderCount),
			money(r.TotalSpent),
		})
	}
	return s.writeFile(fileName(backend, kpi), records)
}

func (s *Sink) writeMonthlyTrends(backend string, rows []kpidomain.MonthlyTrendRow) error {
	records := [][]string{{"month", "order_count", "total_items", "total_revenue", "avg_order_value", "unique_customers"}}
	for _, r := range rows {
		records = append(records, []string{
			r.Month,
			strconv.Itoa(r.OrderCount),
			strconv.Itoa(r.TotalItems),
			money(r.TotalRevenue),
			money(r.AvgOrderValue),
			strconv.Itoa(r.UniqueCustomers),
		})
	}
	return s.writeFile(fileName(backend, kpidomain.KPIMonthlyTrends), records)
}

func (s *Sink) writeRegionalRevenue(backend string, rows []kpidomain.RegionalRevenueRow) error {
	records := [][]string{{"region", "total_revenue", "order_count", "customer_count"}}
	for _, r := range rows {
		records = append(records, []string{
			r.Region,
			money(r.TotalRevenue),
			strconv.Itoa(r.OrderCount),
			strconv.Itoa(r.CustomerCount),
		})
	}
	return s.writeFile(fileName(backend, kpidomain.KPIRegionalRevenue), records)
}

func (s *Sink) writeFile(name string, records [][]string) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func fileName(backend, kpi string) string {
	return backend + "_" + kpi + ".csv"
}

// money renders a two-decimal amount, matching the rounding the engines apply.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
