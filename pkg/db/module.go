package db

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// Module provides the shared *gorm.DB.
var Module = fx.Module("db",
	fx.Provide(ProvideDB),
)

type Params struct {
	fx.In

	Config Config
	Log    *zap.Logger
}

// ProvideDB opens the configured database with tracing and metrics plugins
// installed and the connection pool bounded.
func ProvideDB(p Params) (*gorm.DB, error) {
	dialector, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Config.Name))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Config.Name,
		RefreshInterval: 15,
	})); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	maxIdle := p.Config.MaxIdleConn
	if maxIdle <= 0 {
		maxIdle = 5
	}
	maxOpen := p.Config.MaxOpenConn
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxLifetime := time.Duration(p.Config.ConnMaxLifetime) * time.Second
	if maxLifetime <= 0 {
		maxLifetime = 30 * time.Minute
	}
	maxIdleTime := time.Duration(p.Config.ConnMaxIdleTime) * time.Second
	if maxIdleTime <= 0 {
		maxIdleTime = 5 * time.Minute
	}

	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	p.Log.Info("database connected",
		zap.String("type", p.Config.Type),
		zap.String("name", p.Config.Name),
	)

	return conn, nil
}
