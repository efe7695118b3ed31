package kpi

import (
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/memory"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi/relational"
	"go.uber.org/fx"
)

// Module wires both KPI engines. They implement the same contract over the
// same snapshot; the runner compares their outputs.
var Module = fx.Module("kpi",
	fx.Provide(relational.NewEngine),
	fx.Provide(memory.NewEngine),
)
