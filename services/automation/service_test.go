package automation

import (
	"context"
	"testing"

	"boostpanel/pkg/config"
	"boostpanel/pkg/errutil"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"
	"boostpanel/services/order"
	"boostpanel/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeLedger struct {
	orders   map[string]*order.Order
	appended []order.Order
}

func newFakeLedger(orders ...*order.Order) *fakeLedger {
	m := make(map[string]*order.Order, len(orders))
	for _, o := range orders {
		m[o.OrderID] = o
	}
	return &fakeLedger{orders: m}
}

func (l *fakeLedger) RefreshOrder(ctx context.Context, accountID, orderID string) (*order.Order, error) {
	o, ok := l.orders[orderID]
	if !ok {
		return nil, errutil.NotFound("order not found", nil)
	}
	return o, nil
}

func (l *fakeLedger) AppendOrder(ctx context.Context, accountID string, req smm.OrderRequest, upstreamID, source string) (*order.Order, error) {
	o := order.Order{
		AccountID: accountID,
		OrderID:   upstreamID,
		Service:   req.Service,
		Link:      req.Link,
		Quantity:  req.Quantity,
		Status:    smm.StatusPending,
		Source:    source,
	}
	l.appended = append(l.appended, o)
	return &o, nil
}

func newTestAutomation(t *testing.T, ledger OrderLedger) (*Service, Repository) {
	t.Helper()

	db := testutil.NewTestDB(t, &Task{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(db)
	svc := NewService(ServiceParams{
		Config: &config.Config{},
		Repo:   repo,
		Node:   node,
		Ledger: ledger,
		Locks:  locker.NewKeyed(),
	})
	return svc, repo
}

func TestCreateOrderNotFound(t *testing.T) {
	svc, repo := newTestAutomation(t, newFakeLedger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 1000})
	require.Error(t, err)

	tasks, err := repo.ListByAccount(ctx, "acct1")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestCreateRequiresCompletedOrder(t *testing.T) {
	ledger := newFakeLedger(&order.Order{
		AccountID: "acct1",
		OrderID:   "9001",
		Status:    smm.StatusInProgress,
	})
	svc, repo := newTestAutomation(t, ledger)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 1000})
	require.Error(t, err)

	tasks, err := repo.ListByAccount(ctx, "acct1")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestCreateSeedsFromOrder(t *testing.T) {
	ledger := newFakeLedger(&order.Order{
		AccountID: "acct1",
		OrderID:   "9001",
		Service:   "42",
		Link:      "https://x/v/1",
		Quantity:  500,
		Status:    smm.StatusCompleted,
	})
	svc, _ := newTestAutomation(t, ledger)
	ctx := context.Background()

	task, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 2000})
	require.NoError(t, err)
	require.Equal(t, "9001", task.OrderID)
	require.Equal(t, "42", task.Service)
	require.Equal(t, "https://x/v/1", task.Link)
	require.Equal(t, int64(500), task.Quantity)
	require.Equal(t, int64(2000), task.Target)
	require.Equal(t, int64(0), task.LastViews)
	require.Nil(t, task.LastOrderAt)
	require.True(t, task.Active)
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	ledger := newFakeLedger(&order.Order{
		AccountID: "acct1",
		OrderID:   "9001",
		Status:    smm.StatusCompleted,
	})
	svc, repo := newTestAutomation(t, ledger)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 1000})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 3000})
	require.Error(t, err)

	tasks, err := repo.ListByAccount(ctx, "acct1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, int64(1000), tasks[0].Target)
}

func TestRemoveDeletesAllRowsForOrder(t *testing.T) {
	ledger := newFakeLedger(&order.Order{
		AccountID: "acct1",
		OrderID:   "9001",
		Status:    smm.StatusCompleted,
	})
	svc, repo := newTestAutomation(t, ledger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 1000})
	require.NoError(t, err)

	// A finished run of the same order also goes away on removal.
	created.Active = false
	require.NoError(t, repo.Update(ctx, created))
	_, err = svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 5000})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "acct1", "9001"))

	tasks, err := repo.ListByAccount(ctx, "acct1")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestRemoveUnknownOrder(t *testing.T) {
	svc, _ := newTestAutomation(t, newFakeLedger())

	err := svc.Remove(context.Background(), "acct1", "nope")
	require.Error(t, err)
}

func TestListIncludesFinishedTasks(t *testing.T) {
	ledger := newFakeLedger(&order.Order{
		AccountID: "acct1",
		OrderID:   "9001",
		Status:    smm.StatusCompleted,
	})
	svc, repo := newTestAutomation(t, ledger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acct1", CreateRequest{OrderID: "9001", Target: 1000})
	require.NoError(t, err)

	created.Active = false
	require.NoError(t, repo.Update(ctx, created))

	tasks, err := svc.List(ctx, "acct1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.False(t, tasks[0].Active)
}
