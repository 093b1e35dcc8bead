package account

import (
	"context"

	"boostpanel/pkg/config"
	"boostpanel/pkg/errutil"
	"boostpanel/pkg/rates"
	"boostpanel/pkg/rediskey"
	"boostpanel/pkg/secrets"
	"boostpanel/pkg/smm"
	"boostpanel/pkg/util"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	cfg     *config.Config
	node    *snowflake.Node
	repo    Repository
	cipher  *secrets.Cipher
	gateway smm.Gateway
	redis   *redis.Client
	rates   rates.Source
}

type ServiceParams struct {
	fx.In
	Config  *config.Config
	DB      *gorm.DB
	Node    *snowflake.Node
	Cipher  *secrets.Cipher
	Gateway smm.Gateway
	Redis   *redis.Client
	Rates   rates.Source `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		cfg:     p.Config,
		node:    p.Node,
		repo:    NewRepository(p.DB),
		cipher:  p.Cipher,
		gateway: p.Gateway,
		redis:   p.Redis,
		rates:   p.Rates,
	}
}

// Register creates an account after validating the reseller API key with a
// balance probe against the gateway.
func (s *Service) Register(ctx context.Context, username, password, apiKey string) (*Account, error) {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	zapLog := zap.L().With(
		zap.String("trace_id", traceID),
		zap.String("username", username),
	)

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		zapLog.Error("failed to query account", zap.Error(err))
		return nil, errutil.Internal("failed to query account", err)
	}
	if existing != nil {
		return nil, errutil.Conflict("username already exists", nil)
	}

	if _, err := s.gateway.Balance(ctx, apiKey); err != nil {
		zapLog.Warn("api key validation failed", zap.Error(err))
		return nil, errutil.BadRequest("invalid API key or API not reachable", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errutil.Internal("failed to hash password", err)
	}

	enc, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		zapLog.Error("failed to encrypt api key", zap.Error(err))
		return nil, errutil.Internal("failed to encrypt api key", err)
	}

	acct := &Account{
		ID:           s.node.Generate().String(),
		Username:     username,
		PasswordHash: string(hash),
		APIKeyEnc:    enc,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		zapLog.Error("failed to create account", zap.Error(err))
		return nil, errutil.Internal("failed to create account", err)
	}

	zapLog.Info("account registered", zap.String("account_id", acct.ID))
	return acct, nil
}

// Login verifies credentials and opens a redis-backed session, returning
// the bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	acct, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", errutil.Internal("failed to query account", err)
	}
	if acct == nil {
		return "", errutil.Unauthorized("invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", errutil.Unauthorized("invalid credentials", nil)
	}

	token := util.GenerateSessionToken()
	if err := s.redis.Set(ctx, rediskey.BuildSessionKey(token), acct.ID, s.cfg.Session.TTL).Err(); err != nil {
		zap.L().Error("failed to store session", zap.Error(err))
		return "", errutil.Internal("failed to store session", err)
	}

	return token, nil
}

// Logout discards the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.redis.Del(ctx, rediskey.BuildSessionKey(token)).Err()
}

// APIKey returns the decrypted reseller API key for an account.
func (s *Service) APIKey(ctx context.Context, accountID string) (string, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return "", errutil.Internal("failed to query account", err)
	}
	if acct == nil {
		return "", errutil.NotFound("account not found", nil)
	}

	key, err := s.cipher.Decrypt(acct.APIKeyEnc)
	if err != nil {
		return "", errutil.Internal("failed to decrypt api key", err)
	}

	return key, nil
}

// UpdateAPIKey rotates the reseller API key after re-validating it.
func (s *Service) UpdateAPIKey(ctx context.Context, accountID, apiKey string) error {
	if _, err := s.gateway.Balance(ctx, apiKey); err != nil {
		return errutil.BadRequest("invalid API key or API not reachable", err)
	}

	enc, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return errutil.Internal("failed to encrypt api key", err)
	}

	if err := s.repo.UpdateAPIKey(ctx, accountID, enc); err != nil {
		return errutil.Internal("failed to update api key", err)
	}

	return nil
}

// InitData is the panel bootstrap payload: balance, conversion rate and
// the reseller service catalog.
type InitData struct {
	Balance  string             `json:"balance"`
	Rate     float64            `json:"rate"`
	Services []smm.CatalogEntry `json:"services"`
}

// Init loads everything the panel needs on first render.
func (s *Service) Init(ctx context.Context, accountID string) (*InitData, error) {
	apiKey, err := s.APIKey(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := s.gateway.Balance(ctx, apiKey)
	if err != nil {
		return nil, errutil.BadGateway("failed to query balance", err)
	}

	catalog, err := s.gateway.Services(ctx, apiKey)
	if err != nil {
		return nil, errutil.BadGateway("failed to query service catalog", err)
	}

	out := &InitData{Balance: balance, Services: catalog, Rate: 0}
	if s.rates != nil {
		out.Rate = s.rates.Rate(ctx)
	}

	return out, nil
}

// Connected reports whether the stored API key still authenticates
// against the gateway.
func (s *Service) Connected(ctx context.Context, accountID string) bool {
	apiKey, err := s.APIKey(ctx, accountID)
	if err != nil {
		return false
	}

	_, err = s.gateway.Balance(ctx, apiKey)
	return err == nil
}

// Credentials pairs an account with its decrypted reseller API key.
type Credentials struct {
	AccountID string
	APIKey    string
}

// ListCredentials returns every registered account with its decrypted key.
// Accounts whose key fails to decrypt are skipped rather than failing the
// whole listing; one broken account must not block the rest.
func (s *Service) ListCredentials(ctx context.Context) ([]Credentials, error) {
	accts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	creds := make([]Credentials, 0, len(accts))
	for _, acct := range accts {
		key, err := s.cipher.Decrypt(acct.APIKeyEnc)
		if err != nil {
			zap.L().Error("failed to decrypt api key, skipping account",
				zap.String("account_id", acct.ID),
				zap.Error(err),
			)
			continue
		}
		creds = append(creds, Credentials{AccountID: acct.ID, APIKey: key})
	}

	return creds, nil
}
