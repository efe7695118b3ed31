package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/export"
	ingestservice "github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/service"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/memory"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/relational"
	normalizeservice "github.com/Chloy02/akasa-air-data-pipeline-task/internal/normalize/service"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/observability/metrics"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const customersCSV = `customer_id,customer_name,mobile_number,region
C1,Alice,9876543210,North
C2,Bob,9123456789,South
C3,,9000000001,
CX,Broken,12345,West
`

const ordersXML = `<?xml version="1.0" encoding="UTF-8"?>
<orders>
  <order>
    <order_id>O1</order_id>
    <mobile_number>9876543210</mobile_number>
    <order_date_time>2024-01-05T10:00:00</order_date_time>
    <total_amount>100.00</total_amount>
    <items>
      <item><sku_id>SKU1</sku_id><sku_count>2</sku_count></item>
      <item><sku_id>SKU2</sku_id><sku_count>1</sku_count></item>
    </items>
  </order>
  <order>
    <order_id>O2</order_id>
    <mobile_number>9876543210</mobile_number>
    <order_date_time>2024-01-20T11:00:00</order_date_time>
    <total_amount>50.00</total_amount>
    <items>
      <item><sku_id>SKU1</sku_id><sku_count>1</sku_count></item>
    </items>
  </order>
  <order>
    <order_id>O3</order_id>
    <mobile_number>9123456789</mobile_number>
    <order_date_time>2024-02-10T09:30:00</order_date_time>
    <total_amount>75.50</total_amount>
    <items>
      <item><sku_id>SKU3</sku_id><sku_count>3</sku_count></item>
    </items>
  </order>
  <order>
    <order_id>O4</order_id>
    <mobile_number>9999999999</mobile_number>
    <order_date_time>2024-02-11T08:00:00</order_date_time>
    <total_amount>10.25</total_amount>
    <items>
      <item><sku_id>SKU4</sku_id><sku_count>1</sku_count></item>
    </items>
  </order>
</orders>
`

func writeSources(t *testing.T, dir string) (string, string) {
	t.Helper()
	csvPath := filepath.Join(dir, "customers.csv")
	xmlPath := filepath.Join(dir, "orders.xml")
	require.NoError(t, os.WriteFile(csvPath, []byte(customersCSV), 0o644))
	require.NoError(t, os.WriteFile(xmlPath, []byte(ordersXML), 0o644))
	return csvPath, xmlPath
}

func newTestRunner(t *testing.T, cfg config.Config, m *metrics.Metrics) *Runner {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db")), &gorm.Config{})
	require.NoError(t, err)
	return newTestRunnerWithDB(t, cfg, m, gdb)
}

func newTestRunnerWithDB(t *testing.T, cfg config.Config, m *metrics.Metrics, gdb *gorm.DB) *Runner {
	t.Helper()
	log := zap.NewNop()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	normalizer, err := normalizeservice.NewService(normalizeservice.ServiceParam{Log: log, Cfg: cfg, Metrics: m})
	require.NoError(t, err)

	return NewRunner(Param{
		Log:        log,
		Cfg:        cfg,
		Node:       node,
		Customers:  ingestservice.NewCustomerCSVReader(log),
		Orders:     ingestservice.NewOrderXMLReader(log),
		Normalizer: normalizer,
		Relational: relational.NewEngine(relational.EngineParam{DB: gdb, Log: log, Cfg: cfg}),
		Memory:     memory.NewEngine(memory.EngineParam{Log: log, Cfg: cfg}),
		Sink:       export.NewSink(export.SinkParam{Log: log, Cfg: cfg}),
		Metrics:    m,
	})
}

func testRunConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath, xmlPath := writeSources(t, dir)
	return config.Config{
		Timezone:         "Asia/Kolkata",
		LastNDays:        30,
		TopNCustomers:    10,
		CustomersCSVPath: csvPath,
		OrdersXMLPath:    xmlPath,
		ResultsDir:       filepath.Join(dir, "results"),
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testRunConfig(t)
	runner := newTestRunner(t, cfg, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, summary.CustomersRead)
	// CX has a malformed mobile and is rejected; C3's blank name and region
	// become sentinels, not rejections.
	assert.Equal(t, 3, summary.CustomersAccepted)
	assert.Equal(t, 4, summary.OrdersRead)
	// O4 is an orphan: flagged, not dropped.
	assert.Equal(t, 4, summary.OrdersAccepted)

	require.Len(t, summary.Backends, 2)
	assert.True(t, summary.Backends[relational.BackendName].OK)
	assert.True(t, summary.Backends[memory.BackendName].OK)
	assert.True(t, summary.Matched())

	// One file per backend per KPI plus the comparison summary.
	entries, err := os.ReadDir(cfg.ResultsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 9)

	rel := summary.Backends[relational.BackendName].Results
	require.Len(t, rel.RepeatCustomers, 1)
	assert.Equal(t, "C1", rel.RepeatCustomers[0].CustomerID)
	assert.Equal(t, 150.00, rel.RepeatCustomers[0].TotalSpent)
}

func TestRunFailsWhenCustomerSourceMissing(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.CustomersCSVPath = filepath.Join(t.TempDir(), "missing.csv")
	runner := newTestRunner(t, cfg, nil)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read customers")
}

func TestRunFailsWhenOrderSourceMalformed(t *testing.T) {
	cfg := testRunConfig(t)
	require.NoError(t, os.WriteFile(cfg.OrdersXMLPath, []byte("<orders><order></orders>"), 0o644))
	runner := newTestRunner(t, cfg, nil)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read orders")
}

func TestRejectionMetricsCountOnlyRejectedRecords(t *testing.T) {
	cfg := testRunConfig(t)
	m, err := metrics.New()
	require.NoError(t, err)
	runner := newTestRunner(t, cfg, m)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	rejected := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "pipeline_records_rejected_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "reason" {
					rejected[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	// CX's malformed mobile is the fixture's only rejected record: counted once,
	// not once per layer that saw the issue.
	assert.Equal(t, 1.0, rejected["malformed_mobile"])
	// O4 is an orphan but kept in the snapshot, so it is not a rejection.
	_, ok := rejected["orphan_order"]
	assert.False(t, ok)
	_, ok = rejected["duplicate_key"]
	assert.False(t, ok)
}

func TestRunIsolatesFailingBackend(t *testing.T) {
	cfg := testRunConfig(t)

	// A relational handle whose every query fails: its leg fails at load while
	// the in-memory engine still computes and exports.
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	runner := newTestRunnerWithDB(t, cfg, nil, gdb)
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{relational.BackendName}, summary.FailedBackends())
	assert.True(t, summary.Backends[memory.BackendName].OK)
	assert.False(t, summary.Matched())
	assert.Empty(t, summary.Comparison)

	// Only the surviving backend's four KPI files, no comparison summary.
	entries, err := os.ReadDir(cfg.ResultsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	for _, e := range entries {
		assert.Contains(t, e.Name(), memory.BackendName+"_")
	}
}

func TestCompareResultsFlagsMismatch(t *testing.T) {
	base := testRunConfig(t)
	runner := newTestRunner(t, base, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	a := *summary.Backends[relational.BackendName].Results
	b := *summary.Backends[memory.BackendName].Results
	b.RegionalRevenue[0].TotalRevenue += 1.00

	rows := compareResults(a, b)
	byKPI := map[string]export.ComparisonRow{}
	for _, r := range rows {
		byKPI[r.KPI] = r
	}
	assert.True(t, byKPI["repeat_customers"].Match)
	assert.False(t, byKPI["regional_revenue"].Match)
	assert.NotEmpty(t, byKPI["regional_revenue"].Discrepancy)
}

func TestCompareResultsToleratesSubEpsilonNoise(t *testing.T) {
	base := testRunConfig(t)
	runner := newTestRunner(t, base, nil)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	a := *summary.Backends[relational.BackendName].Results
	b := *summary.Backends[memory.BackendName].Results
	b.MonthlyTrends[0].TotalRevenue += 0.001

	for _, r := range compareResults(a, b) {
		assert.True(t, r.Match, r.KPI)
	}
}
