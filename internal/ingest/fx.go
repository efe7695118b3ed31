package ingest

import (
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(service.NewCustomerCSVReader),
	fx.Provide(service.NewOrderXMLReader),
)
