package order

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("order.service",
	fx.Provide(NewService),
)

var HandlerModule = fx.Module("order.handler",
	fx.Invoke(
		registerRoutes,
		recoverPending,
	),
)

func recoverPending(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := svc.RecoverPending(context.Background()); err != nil {
					zap.L().Warn("pending order recovery failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}
