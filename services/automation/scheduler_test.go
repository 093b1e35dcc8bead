package automation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"boostpanel/pkg/config"
	"boostpanel/pkg/locker"
	"boostpanel/pkg/smm"
	"boostpanel/pkg/tiktok"
	"boostpanel/services/order"
	"boostpanel/services/testutil"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return make(chan time.Time) }

type fakeMetrics struct {
	viewsFn func(ctx context.Context, link string) (int64, error)
}

func (m *fakeMetrics) Resolve(ctx context.Context, input string) (string, error) {
	return input, nil
}

func (m *fakeMetrics) Stats(ctx context.Context, videoID string) (tiktok.Stats, error) {
	return tiktok.Stats{}, errors.New("unexpected Stats call")
}

func (m *fakeMetrics) Views(ctx context.Context, link string) (int64, error) {
	if m.viewsFn == nil {
		return 0, errors.New("unexpected Views call")
	}
	return m.viewsFn(ctx, link)
}

type placeGateway struct {
	placeFn func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error)
	calls   int
}

func (g *placeGateway) PlaceOrder(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
	g.calls++
	if g.placeFn == nil {
		return "", errors.New("unexpected PlaceOrder call")
	}
	return g.placeFn(ctx, apiKey, req)
}

func (g *placeGateway) OrderStatus(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
	return nil, errors.New("unexpected OrderStatus call")
}

func (g *placeGateway) Balance(ctx context.Context, apiKey string) (string, error) {
	return "", errors.New("unexpected Balance call")
}

func (g *placeGateway) Services(ctx context.Context, apiKey string) ([]smm.CatalogEntry, error) {
	return nil, errors.New("unexpected Services call")
}

type staticDirectory []Account

func (d staticDirectory) ListCredentials(ctx context.Context) ([]Account, error) {
	return d, nil
}

type schedulerFixture struct {
	scheduler *Scheduler
	repo      Repository
	ledger    *fakeLedger
	gateway   *placeGateway
	metrics   *fakeMetrics
	clock     *fakeClock
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	db := testutil.NewTestDB(t, &Task{})

	cfg := &config.Config{}
	cfg.Automation.TickInterval = time.Minute
	cfg.Automation.Cooldown = 10 * time.Minute

	f := &schedulerFixture{
		repo:    NewRepository(db),
		ledger:  newFakeLedger(),
		gateway: &placeGateway{},
		metrics: &fakeMetrics{},
		clock:   &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	f.scheduler = NewScheduler(SchedulerParams{
		Config:    cfg,
		Repo:      f.repo,
		Ledger:    f.ledger,
		Directory: staticDirectory{{ID: "acct1", APIKey: "key1"}},
		Gateway:   f.gateway,
		Metrics:   f.metrics,
		Clock:     f.clock,
		Locks:     locker.NewKeyed(),
	})
	return f
}

func (f *schedulerFixture) seedTask(t *testing.T, task *Task) *Task {
	t.Helper()
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%s", task.OrderID)
	}
	require.NoError(t, f.repo.Create(context.Background(), task))
	return task
}

func (f *schedulerFixture) reload(t *testing.T, id string) *Task {
	t.Helper()
	tasks, err := f.repo.ListByAccount(context.Background(), "acct1")
	require.NoError(t, err)
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	t.Fatalf("task %s not found", id)
	return nil
}

func TestSweepReordersBelowTarget(t *testing.T) {
	f := newSchedulerFixture(t)
	f.metrics.viewsFn = func(ctx context.Context, link string) (int64, error) {
		require.Equal(t, "https://x/v/1", link)
		return 700, nil
	}
	f.gateway.placeFn = func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
		require.Equal(t, "key1", apiKey)
		require.Equal(t, "42", req.Service)
		require.Equal(t, int64(500), req.Quantity)
		return "55", nil
	}

	seeded := f.seedTask(t, &Task{
		AccountID: "acct1",
		OrderID:   "9001",
		Service:   "42",
		Link:      "https://x/v/1",
		Quantity:  500,
		Target:    1000,
		LastViews: 400,
		Active:    true,
	})

	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.Equal(t, int64(700), got.LastViews)
	require.True(t, got.Active)
	require.NotNil(t, got.LastOrderAt)
	require.True(t, got.LastOrderAt.Equal(f.clock.now))

	require.Equal(t, 1, f.gateway.calls)
	require.Len(t, f.ledger.appended, 1)
	require.Equal(t, "55", f.ledger.appended[0].OrderID)
	require.Equal(t, order.SourceAutomation, f.ledger.appended[0].Source)
	require.Equal(t, smm.StatusPending, f.ledger.appended[0].Status)
}

func TestSweepFinishesAtTarget(t *testing.T) {
	f := newSchedulerFixture(t)
	f.metrics.viewsFn = func(ctx context.Context, link string) (int64, error) {
		return 1200, nil
	}

	seeded := f.seedTask(t, &Task{
		AccountID: "acct1",
		OrderID:   "9001",
		Link:      "https://x/v/1",
		Quantity:  500,
		Target:    1000,
		LastViews: 800,
		Active:    true,
	})

	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.False(t, got.Active)
	require.Equal(t, int64(1200), got.LastViews)
	require.Nil(t, got.LastOrderAt)
	require.Equal(t, 0, f.gateway.calls)
}

func TestSweepHonorsCooldown(t *testing.T) {
	f := newSchedulerFixture(t)

	recent := f.clock.now.Add(-5 * time.Minute)
	seeded := f.seedTask(t, &Task{
		AccountID:   "acct1",
		OrderID:     "9001",
		Link:        "https://x/v/1",
		Quantity:    500,
		Target:      1000,
		LastViews:   400,
		LastOrderAt: &recent,
		Active:      true,
	})

	// viewsFn left nil: any metric fetch fails the sweep loudly.
	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.Equal(t, int64(400), got.LastViews)
	require.Equal(t, 0, f.gateway.calls)
	require.Empty(t, f.ledger.appended)
}

func TestSweepResumesAfterCooldown(t *testing.T) {
	f := newSchedulerFixture(t)
	f.metrics.viewsFn = func(ctx context.Context, link string) (int64, error) {
		return 600, nil
	}
	f.gateway.placeFn = func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
		return "56", nil
	}

	stale := f.clock.now.Add(-11 * time.Minute)
	seeded := f.seedTask(t, &Task{
		AccountID:   "acct1",
		OrderID:     "9001",
		Link:        "https://x/v/1",
		Quantity:    500,
		Target:      1000,
		LastViews:   400,
		LastOrderAt: &stale,
		Active:      true,
	})

	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.Equal(t, 1, f.gateway.calls)
	require.True(t, got.LastOrderAt.Equal(f.clock.now))
}

func TestSweepSkipsWhenViewsUnavailable(t *testing.T) {
	f := newSchedulerFixture(t)
	f.metrics.viewsFn = func(ctx context.Context, link string) (int64, error) {
		return 0, fmt.Errorf("%w: data block not found", tiktok.ErrUnavailable)
	}

	seeded := f.seedTask(t, &Task{
		AccountID: "acct1",
		OrderID:   "9001",
		Link:      "https://x/v/1",
		Quantity:  500,
		Target:    1000,
		LastViews: 400,
		Active:    true,
	})

	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.Equal(t, int64(400), got.LastViews)
	require.True(t, got.Active)
	require.Nil(t, got.LastOrderAt)
	require.Equal(t, 0, f.gateway.calls)
}

func TestSweepGatewayFailureKeepsObservation(t *testing.T) {
	f := newSchedulerFixture(t)
	f.metrics.viewsFn = func(ctx context.Context, link string) (int64, error) {
		return 700, nil
	}
	f.gateway.placeFn = func(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
		return "", &smm.APIError{Message: "not enough funds"}
	}

	seeded := f.seedTask(t, &Task{
		AccountID: "acct1",
		OrderID:   "9001",
		Link:      "https://x/v/1",
		Quantity:  500,
		Target:    1000,
		LastViews: 400,
		Active:    true,
	})

	f.scheduler.Tick(context.Background())

	got := f.reload(t, seeded.ID)
	require.Equal(t, int64(700), got.LastViews)
	require.Nil(t, got.LastOrderAt)
	require.True(t, got.Active)
	require.Empty(t, f.ledger.appended)
}

func TestSweepIgnoresFinishedTasks(t *testing.T) {
	f := newSchedulerFixture(t)

	f.seedTask(t, &Task{
		AccountID: "acct1",
		OrderID:   "9001",
		Link:      "https://x/v/1",
		Quantity:  500,
		Target:    1000,
		LastViews: 1200,
		Active:    false,
	})

	// viewsFn left nil: evaluating a finished task would fail loudly.
	f.scheduler.Tick(context.Background())

	require.Equal(t, 0, f.gateway.calls)
	require.Empty(t, f.ledger.appended)
}
