package main

import (
	"context"
	"os"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/export"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/kpi"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/logger"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/normalize"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/observability/metrics"
	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/pipeline"
	"github.com/Chloy02/akasa-air-data-pipeline-task/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	exitCode := 0

	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		// Functional domains
		ingest.Module,
		normalize.Module,
		kpi.Module,
		export.Module,
		pipeline.Module,

		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, runner *pipeline.Runner, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						// Batch job: one run, then shut the app down.
						summary, err := runner.Run(context.Background())
						switch {
						case err != nil:
							log.Error("pipeline run failed", zap.Error(err))
							exitCode = 1
						case len(summary.FailedBackends()) > 0:
							log.Error("backend failed, remaining results exported",
								zap.String("run_id", summary.RunID),
								zap.Strings("failed", summary.FailedBackends()),
							)
							exitCode = 3
						case !summary.Matched():
							log.Warn("backend results diverged", zap.String("run_id", summary.RunID))
							exitCode = 2
						}
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)

	app.Run()
	os.Exit(exitCode)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
