package normalize

import (
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/normalize/service"
	"go.uber.org/fx"
)

var Module = fx.Module("normalize",
	fx.Provide(service.NewService),
)
