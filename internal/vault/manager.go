package vault

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/avessio/vaultauth/internal/observability"
)

// Manager orchestrates the validate, extend, re-login lifecycle of a
// process-wide cached login token. It is safe for concurrent use.
//
// The cached token is replaced by simple overwrite: concurrent callers may
// each run the lifecycle independently and the last write wins. A race can
// therefore issue a redundant login; the effect is idempotent and the
// behavior is deliberate, since serializing the whole state machine would
// change observable login counts. Only the unwrap path is single-flighted.
type Manager struct {
	cfg       *Config
	store     StoreClient
	auth      *Authenticator
	unwrapper *Unwrapper
	logger    observability.Logger
	metrics   *Metrics

	token atomic.Pointer[Token]
	now   func() time.Time
}

// ManagerOption is a functional option for configuring the manager.
type ManagerOption func(*Manager)

// WithMetrics sets the metrics recorder for the manager.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a token lifecycle manager bound to the given store.
// The manager owns its token cache and unwrap cache; its lifetime should
// match the store client's.
func NewManager(cfg *Config, store StoreClient, logger observability.Logger, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger.With(observability.String("component", "vault-token")),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = NewMetrics("vaultauth")
	}

	m.unwrapper = NewUnwrapper(store, cfg.LogConfidentialityLevel, logger, m.metrics)
	m.auth = NewAuthenticator(cfg, store, m.unwrapper, logger, m.metrics)
	m.auth.now = func() time.Time { return m.now() }

	return m, nil
}

// ClientToken returns a client token that was valid or freshly issued at
// some point during the call. It fails only if acquisition fails; a token
// invalidated upstream is replaced transparently.
func (m *Manager) ClientToken(ctx context.Context) (string, error) {
	if m.cfg.IsDirectClientToken() {
		return m.directClientToken(ctx)
	}

	token, err := m.renewOrLogin(ctx, m.token.Load())
	if err != nil {
		return "", err
	}

	m.token.Store(token)
	m.metrics.SetTokenExpiry(token.ExpiresAt())
	return token.ClientToken, nil
}

// directClientToken returns the configured client token, unwrapping it
// first if it is supplied as a wrapping token. The caller manages that
// token's lifetime out of band, so nothing is validated, extended, or
// cached here.
func (m *Manager) directClientToken(ctx context.Context) (string, error) {
	if m.cfg.Token != "" {
		return m.cfg.Token, nil
	}
	return m.unwrapper.Unwrap(ctx, unwrapKindClientToken, m.cfg.TokenWrappingToken, ClientTokenExtractor)
}

// renewOrLogin runs the lifecycle over the current token: validate, extend
// when inside the grace period, and log in fresh when nothing usable
// remains.
func (m *Manager) renewOrLogin(ctx context.Context, current *Token) (*Token, error) {
	token := current
	grace := m.cfg.GetRenewGracePeriod()

	if token != nil {
		var err error
		token, err = m.validate(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	if token != nil && token.ShouldExtend(m.now(), grace) {
		var err error
		token, err = m.extend(ctx, token.ClientToken)
		if err != nil {
			return nil, err
		}
	}

	if token == nil || token.IsExpired(m.now()) || token.ExpiresSoon(m.now(), grace) {
		return m.freshLogin(ctx)
	}

	return token, nil
}

// validate checks the token against the store's self-lookup. A forbidden
// response means the token is no longer valid and is dropped; anything else
// propagates unchanged.
func (m *Manager) validate(ctx context.Context, token *Token) (*Token, error) {
	err := m.store.LookupSelf(ctx, token.ClientToken)
	if err == nil {
		return token, nil
	}

	if IsForbidden(err) {
		m.logger.Debug("login token has become invalid",
			observability.String("token", m.cfg.LogConfidentialityLevel.MaskWithTolerance(token.ClientToken, ConfidentialityHigh)),
		)
		return nil, nil
	}

	return nil, err
}

// extend renews the token lease. The renewed token replaces the old one.
func (m *Manager) extend(ctx context.Context, clientToken string) (*Token, error) {
	auth, err := m.store.RenewSelf(ctx, clientToken)
	if err != nil {
		return nil, err
	}

	token := &Token{
		ClientToken:   auth.ClientToken,
		Renewable:     auth.Renewable,
		LeaseDuration: time.Duration(auth.LeaseDuration) * time.Second,
		IssuedAt:      m.now(),
	}
	if err := token.SanityCheck("auth", m.cfg.GetRenewGracePeriod()); err != nil {
		return nil, err
	}

	m.logger.Debug("extended login token",
		observability.String("token", token.ConfidentialInfo(m.cfg.LogConfidentialityLevel)),
	)
	return token, nil
}

// freshLogin performs a new login via the configured auth method.
func (m *Manager) freshLogin(ctx context.Context) (*Token, error) {
	token, err := m.auth.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := token.SanityCheck("auth", m.cfg.GetRenewGracePeriod()); err != nil {
		return nil, err
	}

	m.logger.Debug("created new login token",
		observability.String("token", token.ConfidentialInfo(m.cfg.LogConfidentialityLevel)),
	)
	return token, nil
}
