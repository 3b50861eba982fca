package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/migration"
	"github.com/stayware/callguard/internal/observability"
	"github.com/stayware/callguard/internal/server"
	"github.com/stayware/callguard/pkg/db"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// server.Module carries config, the alerting feature modules and
		// the delivery worker, so one binary runs the whole install.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
