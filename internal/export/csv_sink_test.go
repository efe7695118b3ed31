package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSink(t *testing.T) (*Sink, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "results")
	return NewSink(SinkParam{
		Log: zap.NewNop(),
		Cfg: config.Config{ResultsDir: dir},
	}), dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteResultsProducesOneFilePerKPI(t *testing.T) {
	sink, dir := newTestSink(t)

	res := kpidomain.Results{
		RepeatCustomers: []kpidomain.RepeatCustomerRow{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9876543210", Region: "North", OrderCount: 2, TotalSpent: 150},
		},
		MonthlyTrends: []kpidomain.MonthlyTrendRow{
			{Month: "2024-01", OrderCount: 2, TotalItems: 3, TotalRevenue: 150, AvgOrderValue: 75, UniqueCustomers: 1},
		},
		RegionalRevenue: []kpidomain.RegionalRevenueRow{
			{Region: "North", TotalRevenue: 150, OrderCount: 2, CustomerCount: 1},
		},
		TopCustomers: []kpidomain.TopCustomerRow{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9876543210", Region: "North", OrderCount: 2, TotalSpent: 150},
		},
	}
	require.NoError(t, sink.WriteResults("relational", res))

	for _, kpi := range []string{
		kpidomain.KPIRepeatCustomers,
		kpidomain.KPIMonthlyTrends,
		kpidomain.KPIRegionalRevenue,
		kpidomain.KPITopCustomers,
	} {
		_, err := os.Stat(filepath.Join(dir, "relational_"+kpi+".csv"))
		assert.NoError(t, err, kpi)
	}

	records := readCSV(t, filepath.Join(dir, "relational_repeat_customers.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, []string{"customer_id", "customer_name", "mobile_number", "region", "order_count", "total_spent"}, records[0])
	assert.Equal(t, []string{"C1", "Alice", "9876543210", "North", "2", "150.00"}, records[1])

	records = readCSV(t, filepath.Join(dir, "relational_monthly_trends.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2024-01", "2", "3", "150.00", "75.00", "1"}, records[1])
}

func TestWriteResultsEmptyResultsStillWritesHeaders(t *testing.T) {
	sink, dir := newTestSink(t)
	require.NoError(t, sink.WriteResults("in_memory", kpidomain.Results{}))

	records := readCSV(t, filepath.Join(dir, "in_memory_regional_revenue.csv"))
	require.Len(t, records, 1)
	assert.Equal(t, []string{"region", "total_revenue", "order_count", "customer_count"}, records[0])
}

func TestWriteComparison(t *testing.T) {
	sink, dir := newTestSink(t)

	rows := []ComparisonRow{
		{KPI: kpidomain.KPIRepeatCustomers, Match: true, RowCountA: 2, RowCountB: 2},
		{KPI: kpidomain.KPITopCustomers, Match: false, RowCountA: 3, RowCountB: 2, Discrepancy: "row count differs"},
	}
	require.NoError(t, sink.WriteComparison(rows))

	records := readCSV(t, filepath.Join(dir, "comparison_summary.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"kpi", "match", "rows_relational", "rows_in_memory", "discrepancy"}, records[0])
	assert.Equal(t, []string{"repeat_customers", "true", "2", "2", ""}, records[1])
	assert.Equal(t, []string{"top_customers_30d", "false", "3", "2", "row count differs"}, records[2])
}

func TestWriteResultsCreatesMissingDirectory(t *testing.T) {
	sink, dir := newTestSink(t)
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, sink.WriteResults("relational", kpidomain.Results{}))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
