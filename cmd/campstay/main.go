package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/audit"
	"github.com/smallbiznis/campstay/internal/booking"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/config"
	"github.com/smallbiznis/campstay/internal/editlock"
	"github.com/smallbiznis/campstay/internal/events"
	"github.com/smallbiznis/campstay/internal/migration"
	"github.com/smallbiznis/campstay/internal/observability"
	"github.com/smallbiznis/campstay/internal/payment"
	"github.com/smallbiznis/campstay/internal/ratelimit"
	"github.com/smallbiznis/campstay/internal/server"
	"github.com/smallbiznis/campstay/internal/tax"
	"github.com/smallbiznis/campstay/internal/voucher"
	"github.com/smallbiznis/campstay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(provideDBConfig),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		tax.Module,
		voucher.Module,
		payment.Module,
		audit.Module,
		events.Module,
		editlock.Module,
		booking.Module,

		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func provideDBConfig(cfg config.Config, obsCfg observability.Config) db.Config {
	return db.Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		SQLitePath:      cfg.DBSQLitePath,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		TracingEnabled:  obsCfg.OtelEnabled,
		MetricsEnabled:  true,
	}
}
