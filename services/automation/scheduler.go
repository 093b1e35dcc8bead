package automation

import (
	"context"
	"errors"

	"boostpanel/pkg/config"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"
	"boostpanel/pkg/tiktok"

	"boostpanel/services/order"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Directory enumerates the accounts the scheduler sweeps, with their
// decrypted gateway credentials.
type Directory interface {
	ListCredentials(ctx context.Context) ([]Account, error)
}

// Account is one sweepable account.
type Account struct {
	ID     string
	APIKey string
}

// Scheduler drives all active automation tasks on a fixed cadence. Each
// sweep it re-reads every account's view counts and places follow-up
// orders for tasks still below target.
type Scheduler struct {
	cfg       *config.Config
	repo      Repository
	ledger    OrderLedger
	directory Directory
	gateway   smm.Gateway
	metrics   tiktok.MetricSource
	clock     Clock
	locks     *locker.Keyed
}

type SchedulerParams struct {
	fx.In
	Config    *config.Config
	Repo      Repository
	Ledger    OrderLedger
	Directory Directory
	Gateway   smm.Gateway
	Metrics   tiktok.MetricSource
	Clock     Clock
	Locks     *locker.Keyed
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		cfg:       p.Config,
		repo:      p.Repo,
		ledger:    p.Ledger,
		directory: p.Directory,
		gateway:   p.Gateway,
		metrics:   p.Metrics,
		clock:     p.Clock,
		locks:     p.Locks,
	}
}

// Run sweeps until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	zap.L().Info("automation scheduler started",
		zap.Duration("tick_interval", s.cfg.Automation.TickInterval),
		zap.Duration("cooldown", s.cfg.Automation.Cooldown),
	)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("automation scheduler stopped")
			return
		case <-s.clock.After(s.cfg.Automation.TickInterval):
			s.Tick(ctx)
		}
	}
}

// Tick runs one full sweep over all accounts.
func (s *Scheduler) Tick(ctx context.Context) {
	accounts, err := s.directory.ListCredentials(ctx)
	if err != nil {
		zap.L().Error("failed to list accounts for sweep", zap.Error(err))
		return
	}

	for _, acct := range accounts {
		if ctx.Err() != nil {
			return
		}
		s.sweepAccount(ctx, acct)
	}
}

func (s *Scheduler) sweepAccount(ctx context.Context, acct Account) {
	unlock := s.locks.Lock(acct.ID)
	defer unlock()

	tasks, err := s.repo.ListActiveByAccount(ctx, acct.ID)
	if err != nil {
		zap.L().Error("failed to list active automation tasks",
			zap.String("account_id", acct.ID),
			zap.Error(err),
		)
		return
	}

	for i := range tasks {
		if ctx.Err() != nil {
			return
		}
		s.evaluate(ctx, acct, &tasks[i])
	}
}

// evaluate advances one task by a single step. Callers hold the account
// lock.
func (s *Scheduler) evaluate(ctx context.Context, acct Account, t *Task) {
	zapLog := zap.L().With(
		zap.String("account_id", acct.ID),
		zap.String("order_id", t.OrderID),
	)

	if t.LastOrderAt != nil && s.clock.Now().Sub(*t.LastOrderAt) < s.cfg.Automation.Cooldown {
		return
	}

	views, err := s.metrics.Views(ctx, t.Link)
	if err != nil {
		if errors.Is(err, tiktok.ErrUnavailable) {
			zapLog.Debug("view count unavailable, skipping task")
		} else {
			zapLog.Warn("view count fetch failed", zap.Error(err))
		}
		return
	}

	t.LastViews = views

	if views >= t.Target {
		t.Active = false
		if err := s.repo.Update(ctx, t); err != nil {
			zapLog.Error("failed to finish automation task", zap.Error(err))
			return
		}
		zapLog.Info("automation target reached",
			zap.Int64("views", views),
			zap.Int64("target", t.Target),
		)
		return
	}

	upstreamID, err := s.gateway.PlaceOrder(ctx, acct.APIKey, smm.OrderRequest{
		Service:  t.Service,
		Link:     t.Link,
		Quantity: t.Quantity,
	})
	if err != nil {
		zapLog.Warn("follow-up order rejected", zap.Error(err))
		if err := s.repo.Update(ctx, t); err != nil {
			zapLog.Error("failed to record view observation", zap.Error(err))
		}
		return
	}

	if _, err := s.ledger.AppendOrder(ctx, acct.ID, smm.OrderRequest{
		Service:  t.Service,
		Link:     t.Link,
		Quantity: t.Quantity,
	}, upstreamID, order.SourceAutomation); err != nil {
		zapLog.Error("failed to record follow-up order", zap.Error(err))
	}

	now := s.clock.Now()
	t.LastOrderAt = &now
	if err := s.repo.Update(ctx, t); err != nil {
		zapLog.Error("failed to update automation task", zap.Error(err))
		return
	}

	zapLog.Info("follow-up order placed",
		zap.String("new_order_id", upstreamID),
		zap.Int64("views", views),
		zap.Int64("target", t.Target),
	)
}

// StartScheduler runs the sweep loop for the lifetime of the app.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
