package automation

import (
	"context"

	"boostpanel/pkg/config"
	"boostpanel/pkg/errutil"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"

	"boostpanel/services/order"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OrderLedger is the slice of the order service the automation engine
// depends on. RefreshOrder and AppendOrder require the caller to hold the
// account lock.
type OrderLedger interface {
	RefreshOrder(ctx context.Context, accountID, orderID string) (*order.Order, error)
	AppendOrder(ctx context.Context, accountID string, req smm.OrderRequest, upstreamID, source string) (*order.Order, error)
}

type Service struct {
	cfg    *config.Config
	node   *snowflake.Node
	repo   Repository
	ledger OrderLedger
	locks  *locker.Keyed
}

type ServiceParams struct {
	fx.In
	Config *config.Config
	Repo   Repository
	Node   *snowflake.Node
	Ledger OrderLedger
	Locks  *locker.Keyed
}

func NewService(p ServiceParams) *Service {
	return &Service{
		cfg:    p.Config,
		node:   p.Node,
		repo:   p.Repo,
		ledger: p.Ledger,
		locks:  p.Locks,
	}
}

// CreateRequest arms automation for one completed order.
type CreateRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Target  int64  `json:"target" binding:"required,gt=0"`
}

// Create registers a new automation task. The seed order must exist in
// the account's ledger and have completed; its status is re-checked
// against the gateway first so a just-finished order qualifies without
// waiting for the next manual refresh.
func (s *Service) Create(ctx context.Context, accountID string, req CreateRequest) (*Task, error) {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	zapLog := zap.L().With(
		zap.String("trace_id", traceID),
		zap.String("account_id", accountID),
		zap.String("order_id", req.OrderID),
	)

	unlock := s.locks.Lock(accountID)
	defer unlock()

	o, err := s.ledger.RefreshOrder(ctx, accountID, req.OrderID)
	if err != nil {
		return nil, err
	}

	if o.Status != smm.StatusCompleted {
		return nil, errutil.UnprocessableEntity("only completed orders can be automated", nil)
	}

	existing, err := s.repo.FindActiveByOrder(ctx, accountID, req.OrderID)
	if err != nil {
		return nil, errutil.Internal("failed to query automation tasks", err)
	}
	if existing != nil {
		return nil, errutil.Conflict("this order is already being automated", nil)
	}

	t := &Task{
		ID:        s.node.Generate().String(),
		AccountID: accountID,
		OrderID:   req.OrderID,
		Service:   o.Service,
		Link:      o.Link,
		Quantity:  o.Quantity,
		Target:    req.Target,
		Active:    true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		zapLog.Error("failed to persist automation task", zap.Error(err))
		return nil, errutil.Internal("failed to persist automation task", err)
	}

	zapLog.Info("automation armed", zap.Int64("target", req.Target))
	return t, nil
}

// List returns every automation task of the account, finished ones
// included.
func (s *Service) List(ctx context.Context, accountID string) ([]Task, error) {
	tasks, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, errutil.Internal("failed to list automation tasks", err)
	}
	return tasks, nil
}

// Remove deletes all automation rows tied to the given order id,
// active or not.
func (s *Service) Remove(ctx context.Context, accountID, orderID string) error {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	deleted, err := s.repo.DeleteByOrder(ctx, accountID, orderID)
	if err != nil {
		return errutil.Internal("failed to delete automation task", err)
	}
	if deleted == 0 {
		return errutil.NotFound("automation task not found", nil)
	}

	zap.L().Info("automation removed",
		zap.String("account_id", accountID),
		zap.String("order_id", orderID),
		zap.Int64("deleted", deleted),
	)
	return nil
}
