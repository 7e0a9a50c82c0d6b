package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/healx/internal/config"
	obslogger "github.com/smallbiznis/healx/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// New opens the primary connection pool and registers the query plugins.
func New(p Params) (*gorm.DB, error) {
	cfg := FromAppConfig(p.Cfg)
	conn, err := Open(cfg, obslogger.NewGormLogger(cfg.SlowQuery))
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, fmt.Errorf("register otelgorm: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Cfg.AppName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, fmt.Errorf("register gorm prometheus: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sqlDB.PingContext(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return sqlDB.Close()
			},
		})
	}

	if p.Log != nil {
		p.Log.Info("database configured",
			zap.String("dialect", conn.Dialector.Name()),
			zap.Int("max_open_conn", cfg.MaxOpenConn),
		)
	}
	return conn, nil
}

// Open builds a *gorm.DB for cfg and applies pool limits.
func Open(cfg Config, logger gormlogger.Interface) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
	}
	if logger != nil {
		gormCfg.Logger = logger
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return conn, nil
}

// IsSQLite reports whether conn talks to a SQLite database.
func IsSQLite(conn *gorm.DB) bool {
	if conn == nil || conn.Dialector == nil {
		return false
	}
	return strings.EqualFold(conn.Dialector.Name(), "sqlite")
}

// IsPostgres reports whether conn talks to PostgreSQL.
func IsPostgres(conn *gorm.DB) bool {
	if conn == nil || conn.Dialector == nil {
		return false
	}
	return strings.EqualFold(conn.Dialector.Name(), "postgres")
}
