package order

import (
	"context"
	"encoding/json"

	"boostpanel/pkg/config"
	"boostpanel/pkg/errutil"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"
	"boostpanel/pkg/tiktok"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KeyLookup resolves an account's decrypted reseller API key.
type KeyLookup interface {
	APIKey(ctx context.Context, accountID string) (string, error)
}

type Service struct {
	cfg     *config.Config
	node    *snowflake.Node
	repo    Repository
	gateway smm.Gateway
	keys    KeyLookup
	locks   *locker.Keyed
	metrics tiktok.MetricSource
	asynq   *asynq.Client
}

type ServiceParams struct {
	fx.In
	Config  *config.Config
	DB      *gorm.DB
	Node    *snowflake.Node
	Gateway smm.Gateway
	Keys    KeyLookup
	Locks   *locker.Keyed
	Metrics tiktok.MetricSource `optional:"true"`
	Asynq   *asynq.Client       `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		cfg:     p.Config,
		node:    p.Node,
		repo:    NewRepository(p.DB),
		gateway: p.Gateway,
		keys:    p.Keys,
		locks:   p.Locks,
		metrics: p.Metrics,
		asynq:   p.Asynq,
	}
}

// PlaceRequest is a manual order submission.
type PlaceRequest struct {
	Service  string `json:"service" binding:"required"`
	Link     string `json:"link" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// Place submits a manual order to the gateway and records it in the
// ledger with status Pending. A delayed status refresh task is enqueued so
// the ledger converges on the upstream status.
func (s *Service) Place(ctx context.Context, accountID string, req PlaceRequest) (*Order, error) {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	zapLog := zap.L().With(
		zap.String("trace_id", traceID),
		zap.String("account_id", accountID),
	)

	apiKey, err := s.keys.APIKey(ctx, accountID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	upstreamID, err := s.gateway.PlaceOrder(ctx, apiKey, smm.OrderRequest{
		Service:  req.Service,
		Link:     req.Link,
		Quantity: req.Quantity,
	})
	if err != nil {
		zapLog.Warn("gateway rejected order", zap.Error(err))
		return nil, errutil.BadGateway("order was not accepted", err)
	}

	o, err := s.AppendOrder(ctx, accountID, smm.OrderRequest{
		Service:  req.Service,
		Link:     req.Link,
		Quantity: req.Quantity,
	}, upstreamID, SourceManual)
	if err != nil {
		return nil, err
	}

	s.enqueueRefresh(accountID, upstreamID)

	zapLog.Info("order placed", zap.String("order_id", upstreamID))
	return o, nil
}

// AppendOrder records an accepted order. Callers must hold the account
// lock.
func (s *Service) AppendOrder(ctx context.Context, accountID string, req smm.OrderRequest, upstreamID, source string) (*Order, error) {
	meta, _ := json.Marshal(map[string]any{
		"service":  req.Service,
		"link":     req.Link,
		"quantity": req.Quantity,
		"source":   source,
	})

	o := &Order{
		ID:        s.node.Generate().String(),
		AccountID: accountID,
		OrderID:   upstreamID,
		Service:   req.Service,
		Link:      req.Link,
		Quantity:  req.Quantity,
		Status:    smm.StatusPending,
		Source:    source,
		Metadata:  datatypes.JSON(meta),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		zap.L().Error("failed to persist order", zap.String("order_id", upstreamID), zap.Error(err))
		return nil, errutil.Internal("failed to persist order", err)
	}

	return o, nil
}

// FindOrder returns the ledger entry for an upstream order id, or nil.
func (s *Service) FindOrder(ctx context.Context, accountID, orderID string) (*Order, error) {
	o, err := s.repo.GetByAccountOrder(ctx, accountID, orderID)
	if err != nil {
		return nil, errutil.Internal("failed to query order", err)
	}
	return o, nil
}

// RefreshOrder re-queries the gateway for one order's status and updates
// the ledger. Callers must hold the account lock. A gateway failure leaves
// the stored status untouched and returns the stale entry.
func (s *Service) RefreshOrder(ctx context.Context, accountID, orderID string) (*Order, error) {
	o, err := s.FindOrder(ctx, accountID, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errutil.NotFound("order not found", nil)
	}

	apiKey, err := s.keys.APIKey(ctx, accountID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.gateway.OrderStatus(ctx, apiKey, []string{orderID})
	if err != nil {
		zap.L().Warn("status refresh failed, keeping stale status",
			zap.String("account_id", accountID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return o, nil
	}

	st, ok := statuses[orderID]
	if !ok || st.Status == "" {
		return o, nil
	}

	if err := s.repo.UpdateStatus(ctx, accountID, orderID, st.Status, st.Remains.String()); err != nil {
		return nil, errutil.Internal("failed to update order status", err)
	}

	o.Status = st.Status
	o.Remains = st.Remains.String()
	return o, nil
}

// History lists the account's orders, refreshing their statuses from the
// gateway first. A gateway failure degrades to the stale ledger contents.
func (s *Service) History(ctx context.Context, accountID string) ([]Order, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	return s.refreshAccountLocked(ctx, accountID)
}

// refreshAccountLocked refreshes every order of one account in a single
// gateway call. Callers must hold the account lock.
func (s *Service) refreshAccountLocked(ctx context.Context, accountID string) ([]Order, error) {
	orders, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, errutil.Internal("failed to list orders", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	apiKey, err := s.keys.APIKey(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}

	statuses, err := s.gateway.OrderStatus(ctx, apiKey, ids)
	if err != nil {
		zap.L().Warn("bulk status refresh failed, returning stale history",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return orders, nil
	}

	for i := range orders {
		st, ok := statuses[orders[i].OrderID]
		if !ok || st.Status == "" {
			continue
		}
		if st.Status == orders[i].Status && st.Remains.String() == orders[i].Remains {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, accountID, orders[i].OrderID, st.Status, st.Remains.String()); err != nil {
			zap.L().Error("failed to update order status",
				zap.String("order_id", orders[i].OrderID),
				zap.Error(err),
			)
			continue
		}
		orders[i].Status = st.Status
		orders[i].Remains = st.Remains.String()
	}

	return orders, nil
}

// Analyze resolves an arbitrary link or id and returns current video
// stats, used by the panel before placing an order.
func (s *Service) Analyze(ctx context.Context, input string) (*tiktok.Stats, error) {
	if s.metrics == nil {
		return nil, errutil.Internal("metric source not configured", nil)
	}

	videoID, err := s.metrics.Resolve(ctx, input)
	if err != nil {
		return nil, errutil.BadRequest("invalid video link", err)
	}

	stats, err := s.metrics.Stats(ctx, videoID)
	if err != nil {
		return nil, errutil.BadGateway("video data extraction failed", err)
	}

	return &stats, nil
}
