package automation

import (
	"context"

	"boostpanel/services/account"
	"boostpanel/services/order"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type accountDirectory struct {
	svc *account.Service
}

func (d accountDirectory) ListCredentials(ctx context.Context) ([]Account, error) {
	creds, err := d.svc.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(creds))
	for _, c := range creds {
		accounts = append(accounts, Account{ID: c.AccountID, APIKey: c.APIKey})
	}
	return accounts, nil
}

var Module = fx.Module("automation.service",
	fx.Provide(
		NewClock,
		func(db *gorm.DB) Repository { return NewRepository(db) },
		func(svc *order.Service) OrderLedger { return svc },
		func(svc *account.Service) Directory { return accountDirectory{svc: svc} },
		NewService,
		NewScheduler,
	),
	fx.Invoke(registerRoutes),
)

// SchedulerModule runs the sweep loop. Kept separate so the queue worker
// binary can load the service without also sweeping.
var SchedulerModule = fx.Module("automation.scheduler",
	fx.Invoke(StartScheduler),
)
