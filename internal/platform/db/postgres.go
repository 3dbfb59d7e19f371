package db

import (
	"context"
	"fmt"

	"github.com/fatflowers/entitlement/internal/app/service/schema"
	"github.com/fatflowers/entitlement/internal/models"
	cfgpkg "github.com/fatflowers/entitlement/pkg/config"
	gormzap "github.com/fatflowers/entitlement/pkg/gormlog"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	logger := gormzap.New(l, gormzap.ParseLevel(cfg.Database.LogLevel), cfg.Database.SlowThreshold)
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: logger})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// Models lists every table owned by the service.
var Models = []any{
	&models.User{},
	&models.SubscriptionValidationLog{},
	&models.AppStoreNotification{},
	&models.SubscriptionLog{},
}

// AutoMigrate runs GORM migrations on startup and checks that the indexes the subscription
// queries depend on exist.
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	if err := CheckIndexes(db); err != nil {
		l.Errorf("index check failed: %v", err)
		return err
	}
	l.Infow("automigrate completed", "indexes", len(schema.RequiredIndexes))
	return nil
}

// CheckIndexes reports the first required index missing from the database.
func CheckIndexes(db *gorm.DB) error {
	m := db.Migrator()
	for _, idx := range schema.RequiredIndexes {
		if !m.HasIndex(idx.Table, idx.Name) {
			return fmt.Errorf("missing index %s on %s(%v)", idx.Name, idx.Table, idx.Columns)
		}
	}
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
