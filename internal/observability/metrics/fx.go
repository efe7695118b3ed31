package metrics

import "go.uber.org/fx"

// Module wires the pipeline metrics instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
