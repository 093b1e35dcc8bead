package account

import (
	"context"
	"errors"
	"testing"

	"boostpanel/pkg/config"
	"boostpanel/pkg/secrets"
	"boostpanel/pkg/smm"
	"boostpanel/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGateway struct {
	balanceFn  func(ctx context.Context, apiKey string) (string, error)
	servicesFn func(ctx context.Context, apiKey string) ([]smm.CatalogEntry, error)
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, apiKey string, req smm.OrderRequest) (string, error) {
	return "", errors.New("unexpected PlaceOrder call")
}

func (g *fakeGateway) OrderStatus(ctx context.Context, apiKey string, orderIDs []string) (map[string]smm.OrderStatus, error) {
	return nil, errors.New("unexpected OrderStatus call")
}

func (g *fakeGateway) Balance(ctx context.Context, apiKey string) (string, error) {
	if g.balanceFn == nil {
		return "10.00", nil
	}
	return g.balanceFn(ctx, apiKey)
}

func (g *fakeGateway) Services(ctx context.Context, apiKey string) ([]smm.CatalogEntry, error) {
	if g.servicesFn == nil {
		return nil, nil
	}
	return g.servicesFn(ctx, apiKey)
}

type fixedRate float64

func (r fixedRate) Rate(ctx context.Context) float64 { return float64(r) }

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Account{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{SecretAES: "test-secret"}
	cipher, err := secrets.NewCipher(cfg)
	require.NoError(t, err)

	return NewService(ServiceParams{
		Config:  cfg,
		DB:      db,
		Node:    node,
		Cipher:  cipher,
		Gateway: gw,
		Rates:   fixedRate(125.5),
	})
}

func TestRegisterStoresEncryptedKey(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	ctx := context.Background()

	acct, err := svc.Register(ctx, "alice", "hunter22", "reseller-key")
	require.NoError(t, err)
	require.NotEmpty(t, acct.ID)
	require.NotEqual(t, "reseller-key", acct.APIKeyEnc)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("hunter22")))

	key, err := svc.APIKey(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "reseller-key", key)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "hunter22", "reseller-key")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other", "other-key")
	require.Error(t, err)
}

func TestRegisterRejectsInvalidAPIKey(t *testing.T) {
	gw := &fakeGateway{
		balanceFn: func(ctx context.Context, apiKey string) (string, error) {
			return "", &smm.APIError{Message: "Invalid API key"}
		},
	}
	svc := newTestService(t, gw)

	_, err := svc.Register(context.Background(), "alice", "hunter22", "bad-key")
	require.Error(t, err)
}

func TestUpdateAPIKeyRotates(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	ctx := context.Background()

	acct, err := svc.Register(ctx, "alice", "hunter22", "old-key")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateAPIKey(ctx, acct.ID, "new-key"))

	key, err := svc.APIKey(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "new-key", key)
}

func TestInitData(t *testing.T) {
	gw := &fakeGateway{
		balanceFn: func(ctx context.Context, apiKey string) (string, error) {
			require.Equal(t, "reseller-key", apiKey)
			return "42.00", nil
		},
		servicesFn: func(ctx context.Context, apiKey string) ([]smm.CatalogEntry, error) {
			return []smm.CatalogEntry{{Service: "101", Name: "Views"}}, nil
		},
	}
	svc := newTestService(t, gw)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "alice", "hunter22", "reseller-key")
	require.NoError(t, err)

	data, err := svc.Init(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "42.00", data.Balance)
	require.Equal(t, 125.5, data.Rate)
	require.Len(t, data.Services, 1)
}

func TestListCredentialsSkipsBrokenKeys(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	ctx := context.Background()

	acct, err := svc.Register(ctx, "alice", "hunter22", "reseller-key")
	require.NoError(t, err)

	// A row with an undecryptable key must not break the listing.
	require.NoError(t, svc.repo.Create(ctx, &Account{
		ID:           "broken",
		Username:     "bob",
		PasswordHash: "x",
		APIKeyEnc:    "not-hex-ciphertext",
	}))

	creds, err := svc.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	require.Equal(t, acct.ID, creds[0].AccountID)
	require.Equal(t, "reseller-key", creds[0].APIKey)
}
