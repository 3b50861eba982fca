package config

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/pkg/db"
)

// Module provides env config, the hot-reloading alerting config holder, and
// the database config derived from both.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewAlertingConfigHolder),
	fx.Provide(ProvideDBConfig),
)

func ProvideDBConfig(cfg Config) db.Config {
	return db.Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		FilePath:        cfg.DBFilePath,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}
