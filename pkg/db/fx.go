package db

import (
	"context"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and registers a lifecycle close hook.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialect, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	log.Info("database connected", zap.String("type", cfg.DBType), zap.String("name", cfg.DBName))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return gdb, nil
}

// Module wires the gorm database handle.
var Module = fx.Module("db",
	fx.Provide(Open),
)
