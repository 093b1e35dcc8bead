package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	asynqfx "boostpanel/pkg/asynq"
	"boostpanel/pkg/config"
	"boostpanel/pkg/db"
	"boostpanel/pkg/gen"
	"boostpanel/pkg/hashistack/secretmanager"
	"boostpanel/pkg/health"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/logger"
	"boostpanel/pkg/otelcol"
	"boostpanel/pkg/otelcol/exporters"
	"boostpanel/pkg/rates"
	redisfx "boostpanel/pkg/redis"
	"boostpanel/pkg/secrets"
	"boostpanel/pkg/server"
	"boostpanel/pkg/smm"
	"boostpanel/pkg/tiktok"

	"boostpanel/services/account"
	"boostpanel/services/automation"
	"boostpanel/services/order"
)

func main() {
	app := fx.New(
		secretmanager.Module,
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,
		redisfx.Module,
		secrets.Module,
		locker.Module,
		smm.Module,
		tiktok.Module,
		rates.Module,
		asynqfx.Client,
		fx.Provide(
			fx.Annotate(exporters.ProvideGrpc, fx.As(new(sdktrace.SpanExporter))),
			func(svc *account.Service) order.KeyLookup { return svc },
		),
		otelcol.Module,
		server.Module,
		health.Module,
		account.Module,
		order.Module,
		order.HandlerModule,
		automation.Module,
		automation.SchedulerModule,
		fx.Invoke(migrate),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.Account{},
		&order.Order{},
		&automation.Task{},
	)
}
