package domain

import (
	"context"

	ingestdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/domain"
	snapshotdomain "github.com/Chloy02/akasa-air-data-pipeline-task/internal/snapshot/domain"
)

// Service converts raw records into one canonical snapshot plus the
// ValidationReport for the run. Per-record issues never abort normalization.
type Service interface {
	Normalize(ctx context.Context, customers []ingestdomain.RawCustomer, orders []ingestdomain.RawOrder) (*snapshotdomain.Snapshot, *Report, error)
}
