package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	return NewEngine(EngineParam{
		Log: zap.NewNop(),
		Cfg: config.Config{Timezone: "Asia/Kolkata", LastNDays: 30, TopNCustomers: 2},
	})
}

func TestComputeBeforeLoadFails(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.RepeatCustomers(context.Background())
	var computeErr *kpidomain.BackendComputeError
	require.True(t, errors.As(err, &computeErr))
	assert.Equal(t, BackendName, computeErr.Backend)
}

func TestLoadNilSnapshot(t *testing.T) {
	eng := newTestEngine()
	err := eng.Load(context.Background(), nil)

	var loadErr *kpidomain.BackendLoadError
	require.True(t, errors.As(err, &loadErr))
}

func TestTopCustomersHonorsTopN(t *testing.T) {
	eng := newTestEngine()
	ref := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	snap := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9000000001", Region: "North"},
			{CustomerID: "C2", CustomerName: "Bob", MobileNumber: "9000000002", Region: "North"},
			{CustomerID: "C3", CustomerName: "Carol", MobileNumber: "9000000003", Region: "North"},
		},
		Orders: []snapshotdomain.Order{
			{OrderID: "O1", MobileNumber: "9000000001", OrderDateTime: ref.Add(-time.Hour), TotalAmount: 10.00},
			{OrderID: "O2", MobileNumber: "9000000002", OrderDateTime: ref.Add(-2 * time.Hour), TotalAmount: 30.00},
			{OrderID: "O3", MobileNumber: "9000000003", OrderDateTime: ref, TotalAmount: 20.00},
		},
		ReferenceTime: ref,
	}
	require.NoError(t, eng.Load(context.Background(), snap))

	rows, err := eng.TopCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C2", rows[0].CustomerID)
	assert.Equal(t, "C3", rows[1].CustomerID)
}

func TestTopCustomersWindowBoundsInclusive(t *testing.T) {
	eng := newTestEngine()
	ref := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	start := ref.Add(-30 * 24 * time.Hour)

	snap := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9000000001", Region: "North"},
			{CustomerID: "C2", CustomerName: "Bob", MobileNumber: "9000000002", Region: "North"},
		},
		Orders: []snapshotdomain.Order{
			// Exactly on the lower bound: included.
			{OrderID: "O1", MobileNumber: "9000000001", OrderDateTime: start, TotalAmount: 10.00},
			// One second before the lower bound: excluded.
			{OrderID: "O2", MobileNumber: "9000000002", OrderDateTime: start.Add(-time.Second), TotalAmount: 99.00},
			// Exactly on the upper bound: included.
			{OrderID: "O3", MobileNumber: "9000000001", OrderDateTime: ref, TotalAmount: 5.00},
		},
		ReferenceTime: ref,
	}
	require.NoError(t, eng.Load(context.Background(), snap))

	rows, err := eng.TopCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1", rows[0].CustomerID)
	assert.Equal(t, 15.00, rows[0].TotalSpent)
	assert.Equal(t, 2, rows[0].OrderCount)
}

func TestRegionalRevenueGroupsOrphansUnderUnknown(t *testing.T) {
	eng := newTestEngine()
	ts := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	snap := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			{CustomerID: "C1", CustomerName: "Alice", MobileNumber: "9000000001", Region: "North"},
		},
		Orders: []snapshotdomain.Order{
			{OrderID: "O1", MobileNumber: "9000000001", OrderDateTime: ts, TotalAmount: 10.00},
			{OrderID: "O2", MobileNumber: "9999999999", OrderDateTime: ts, TotalAmount: 7.50, Orphan: true},
			{OrderID: "O3", MobileNumber: "8888888888", OrderDateTime: ts, TotalAmount: 2.50, Orphan: true},
		},
		ReferenceTime: ts,
	}
	require.NoError(t, eng.Load(context.Background(), snap))

	rows, err := eng.RegionalRevenue(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, kpidomain.RegionalRevenueRow{Region: "North", TotalRevenue: 10.00, OrderCount: 1, CustomerCount: 1}, rows[0])
	assert.Equal(t, kpidomain.RegionalRevenueRow{Region: "Unknown", TotalRevenue: 10.00, OrderCount: 2, CustomerCount: 0}, rows[1])
}
