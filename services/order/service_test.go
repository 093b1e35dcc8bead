package order

import (
	"context"
	"errors"
	"testing"

	"boostpanel/pkg/config"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"
	"boostpanel/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGateway struct {
	placeFn  func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error)
	statusFn func(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error)
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
	if g.placeFn == nil {
		return "", errors.New("unexpected PlaceOrder call")
	}
	return g.placeFn(ctx, apiKey, req)
}

func (g *fakeGateway) OrderStatus(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
	if g.statusFn == nil {
		return nil, errors.New("unexpected OrderStatus call")
	}
	return g.statusFn(ctx, apiKey, orderIDs)
}

func (g *fakeGateway) Balance(ctx context.Context, apiKey string) (string, error) {
	return "10.00", nil
}

func (g *fakeGateway) Services(ctx context.Context, apiKey string) ([]smm.CatalogEntry, error) {
	return nil, nil
}

type staticKeys struct{}

func (staticKeys) APIKey(ctx context.Context, accountID string) (string, error) {
	return "api-key-" + accountID, nil
}

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Order{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{
		Config:  &config.Config{},
		DB:      db,
		Node:    node,
		Gateway: gw,
		Keys:    staticKeys{},
		Locks:   locker.NewKeyed(),
	})
}

func TestPlaceRecordsOrder(t *testing.T) {
	gw := &fakeGateway{
		placeFn: func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
			require.Equal(t, "api-key-acct1", apiKey)
			require.Equal(t, int64(1000), req.Quantity)
			return "9001", nil
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	o, err := svc.Place(ctx, "acct1", PlaceRequest{Service: "42", Link: "https://x/v/1", Quantity: 1000})
	require.NoError(t, err)
	require.Equal(t, "9001", o.OrderID)
	require.Equal(t, smm.StatusPending, o.Status)
	require.Equal(t, SourceManual, o.Source)

	stored, err := svc.FindOrder(ctx, "acct1", "9001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "https://x/v/1", stored.Link)
}

func TestPlaceGatewayRejected(t *testing.T) {
	gw := &fakeGateway{
		placeFn: func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
			return "", &smm.APIError{Message: "not enough funds"}
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, err := svc.Place(ctx, "acct1", PlaceRequest{Service: "42", Link: "https://x/v/1", Quantity: 1000})
	require.Error(t, err)

	orders, err := svc.History(ctx, "acct1")
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestHistoryRefreshesStatuses(t *testing.T) {
	gw := &fakeGateway{
		statusFn: func(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
			require.ElementsMatch(t, []string{"9001", "9002"}, orderIDs)
			return map[string]smm.OrderStatus{
				"9001": {Status: smm.StatusCompleted, Remains: "0"},
			}, nil
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	for _, id := range []string{"9001", "9002"} {
		_, err := svc.AppendOrder(ctx, "acct1", smm.OrderRequest{Service: "42", Link: "https://x/v/1", Quantity: 500}, id, SourceManual)
		require.NoError(t, err)
	}

	orders, err := svc.History(ctx, "acct1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, smm.StatusCompleted, orders[0].Status)
	require.Equal(t, "0", orders[0].Remains)
	require.Equal(t, smm.StatusPending, orders[1].Status)

	// The refresh is persisted, not just reflected in the response.
	stored, err := svc.FindOrder(ctx, "acct1", "9001")
	require.NoError(t, err)
	require.Equal(t, smm.StatusCompleted, stored.Status)
}

func TestHistoryGatewayFailureReturnsStale(t *testing.T) {
	gw := &fakeGateway{
		statusFn: func(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, err := svc.AppendOrder(ctx, "acct1", smm.OrderRequest{Service: "42", Link: "https://x/v/1", Quantity: 500}, "9001", SourceManual)
	require.NoError(t, err)

	orders, err := svc.History(ctx, "acct1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, smm.StatusPending, orders[0].Status)
}

func TestRefreshOrderNotFound(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})

	_, err := svc.RefreshOrder(context.Background(), "acct1", "nope")
	require.Error(t, err)
}

func TestRefreshOrderKeepsStaleOnGatewayError(t *testing.T) {
	gw := &fakeGateway{
		statusFn: func(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, err := svc.AppendOrder(ctx, "acct1", smm.OrderRequest{Service: "42", Link: "https://x/v/1", Quantity: 500}, "9001", SourceManual)
	require.NoError(t, err)

	o, err := svc.RefreshOrder(ctx, "acct1", "9001")
	require.NoError(t, err)
	require.Equal(t, smm.StatusPending, o.Status)
}
