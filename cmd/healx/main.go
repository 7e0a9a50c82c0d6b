package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/healx/internal/clock"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/migration"
	"github.com/smallbiznis/healx/internal/observability"
	"github.com/smallbiznis/healx/internal/pushmetrics"
	"github.com/smallbiznis/healx/internal/server"
	"github.com/smallbiznis/healx/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		fx.Invoke(server.RunHTTP),
		pushmetrics.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
