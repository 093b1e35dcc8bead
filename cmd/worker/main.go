package main

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	asynqfx "boostpanel/pkg/asynq"
	"boostpanel/pkg/config"
	"boostpanel/pkg/db"
	"boostpanel/pkg/gen"
	"boostpanel/pkg/hashistack/secretmanager"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/logger"
	redisfx "boostpanel/pkg/redis"
	"boostpanel/pkg/secrets"
	"boostpanel/pkg/smm"

	"boostpanel/services/account"
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
		asynqfx.Client,
		asynqfx.Server,
		fx.Provide(
			account.NewService,
			order.NewService,
			func(svc *account.Service) order.KeyLookup { return svc },
		),
		fx.Invoke(registerHandlers),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func registerHandlers(mux *asynq.ServeMux, svc *order.Service) {
	mux.HandleFunc(order.TypeOrderStatusRefresh, svc.HandleStatusRefresh)
}
