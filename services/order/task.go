package order

import (
	"context"
	"encoding/json"

	"boostpanel/pkg/smm"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const TypeOrderStatusRefresh = "order:status:refresh"

// StatusRefreshPayload identifies one manually placed order whose status
// should be re-queried from the gateway.
type StatusRefreshPayload struct {
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`
}

func NewStatusRefreshTask(accountID, orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(StatusRefreshPayload{
		AccountID: accountID,
		OrderID:   orderID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderStatusRefresh, payload), nil
}

// enqueueRefresh schedules a delayed status refresh for a manual order.
// Best effort: the panel degrades to on-demand refresh if the queue is
// unreachable or unconfigured.
func (s *Service) enqueueRefresh(accountID, orderID string) {
	if s.asynq == nil {
		return
	}

	task, err := NewStatusRefreshTask(accountID, orderID)
	if err != nil {
		zap.L().Error("failed to build refresh task", zap.Error(err))
		return
	}

	info, err := s.asynq.Enqueue(task, asynq.ProcessIn(s.cfg.Gateway.RefreshDelay))
	if err != nil {
		zap.L().Warn("failed to enqueue refresh task",
			zap.String("account_id", accountID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	zap.L().Info("refresh task enqueued",
		zap.String("task_id", info.ID),
		zap.String("order_id", orderID),
	)
}

// HandleStatusRefresh processes one queued refresh.
func (s *Service) HandleStatusRefresh(ctx context.Context, t *asynq.Task) error {
	var p StatusRefreshPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		zap.L().Error("malformed refresh payload", zap.Error(err))
		return nil
	}

	unlock := s.locks.Lock(p.AccountID)
	defer unlock()

	o, err := s.RefreshOrder(ctx, p.AccountID, p.OrderID)
	if err != nil {
		return err
	}

	zap.L().Info("order status refreshed",
		zap.String("account_id", p.AccountID),
		zap.String("order_id", p.OrderID),
		zap.String("status", o.Status),
	)
	return nil
}

// RecoverPending re-enqueues a status refresh for every non-terminal
// order in the ledger. Run once at startup so orders that were in flight
// across a restart still converge.
func (s *Service) RecoverPending(ctx context.Context) error {
	if s.asynq == nil {
		return nil
	}

	accountIDs, err := s.repo.ListAccountIDs(ctx)
	if err != nil {
		return err
	}
	return s.EnqueuePendingRefresh(ctx, accountIDs)
}

// EnqueuePendingRefresh schedules a refresh for every non-terminal order
// of the given accounts, fanning out per account.
func (s *Service) EnqueuePendingRefresh(ctx context.Context, accountIDs []string) error {
	if s.asynq == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, accountID := range accountIDs {
		accountID := accountID
		g.Go(func() error {
			orders, err := s.repo.ListByAccount(ctx, accountID)
			if err != nil {
				return err
			}
			for _, o := range orders {
				if o.Status == smm.StatusCompleted || o.Status == smm.StatusCanceled {
					continue
				}
				s.enqueueRefresh(accountID, o.OrderID)
			}
			return nil
		})
	}
	return g.Wait()
}
