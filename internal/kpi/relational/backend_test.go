package relational

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	"github.com/DATA-DOG/go-sqlmock"
	kpidomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/domain"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func testConfig() config.Config {
	return config.Config{Timezone: "Asia/Kolkata", LastNDays: 30, TopNCustomers: 10}
}

func newSQLiteEngine(t *testing.T) *Engine {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kpi.db")), &gorm.Config{})
	require.NoError(t, err)
	return NewEngine(EngineParam{DB: gdb, Log: zap.NewNop(), Cfg: testConfig()})
}

func customer(id, name, mobile, region string) snapshotdomain.Customer {
	return snapshotdomain.Customer{CustomerID: id, CustomerName: name, MobileNumber: mobile, Region: region}
}

func TestLoadRejectsDuplicateMobile(t *testing.T) {
	eng := newSQLiteEngine(t)

	snap := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			customer("C1", "Alice", "9876543210", "North"),
			customer("C2", "Bob", "9876543210", "South"),
		},
	}
	err := eng.Load(context.Background(), snap)

	var loadErr *kpidomain.BackendLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, BackendName, loadErr.Backend)
	assert.Contains(t, loadErr.Error(), "uniqueness violation")
}

func TestLoadFailureRollsBackToPreRunState(t *testing.T) {
	eng := newSQLiteEngine(t)
	ctx := context.Background()

	good := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{customer("C1", "Alice", "9876543210", "North")},
	}
	require.NoError(t, eng.Load(ctx, good))

	bad := &snapshotdomain.Snapshot{
		Customers: []snapshotdomain.Customer{
			customer("C2", "Bob", "9000000001", "South"),
			customer("C3", "Carol", "9000000001", "East"),
		},
	}
	require.Error(t, eng.Load(ctx, bad))

	// The failed run's wipe and inserts rolled back together: the previous
	// snapshot is still queryable.
	var ids []string
	require.NoError(t, eng.db.Raw("SELECT customer_id FROM customers ORDER BY customer_id").Scan(&ids).Error)
	assert.Equal(t, []string{"C1"}, ids)
}

func TestLoadNilSnapshot(t *testing.T) {
	eng := newSQLiteEngine(t)
	err := eng.Load(context.Background(), nil)

	var loadErr *kpidomain.BackendLoadError
	require.True(t, errors.As(err, &loadErr))
}

func TestComputeFailureSurfacesAsBackendComputeError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	eng := NewEngine(EngineParam{DB: gdb, Log: zap.NewNop(), Cfg: testConfig()})

	mock.ExpectQuery("SELECT c.customer_id").WillReturnError(errors.New("relation does not exist"))

	_, err = eng.RepeatCustomers(context.Background())
	var computeErr *kpidomain.BackendComputeError
	require.True(t, errors.As(err, &computeErr))
	assert.Equal(t, BackendName, computeErr.Backend)
	assert.Equal(t, kpidomain.KPIRepeatCustomers, computeErr.KPI)
}

func TestTopCustomersEmptyTableYieldsEmptyRows(t *testing.T) {
	eng := newSQLiteEngine(t)
	require.NoError(t, eng.Load(context.Background(), &snapshotdomain.Snapshot{}))

	rows, err := eng.TopCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
