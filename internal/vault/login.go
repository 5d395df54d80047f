package vault

import (
	"context"
	"fmt"
	"os"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/avessio/vaultauth/internal/observability"
)

// Unwrap kind names, used in logs and error messages.
const (
	unwrapKindClientToken = "client token"
	unwrapKindSecretID    = "secret id"
)

// Authenticator produces a fresh token by invoking exactly one of the
// configured login strategies.
type Authenticator struct {
	cfg       *Config
	store     StoreClient
	unwrapper *Unwrapper
	logger    observability.Logger
	metrics   *Metrics
	now       func() time.Time
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(cfg *Config, store StoreClient, unwrapper *Unwrapper, logger observability.Logger, metrics *Metrics) *Authenticator {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Authenticator{
		cfg:       cfg,
		store:     store,
		unwrapper: unwrapper,
		logger:    logger.With(observability.String("component", "vault-auth")),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Login performs a fresh login with the configured auth method and
// normalizes the store's auth response into a Token issued now.
//
// The direct-token method never reaches this dispatch: the lifecycle
// manager short-circuits it before logging in. Configuration validation
// rejects anything outside the closed method set, so the default branch is
// a defect in upstream validation, reported as a configuration error.
func (a *Authenticator) Login(ctx context.Context) (*Token, error) {
	var (
		auth *vaultapi.SecretAuth
		err  error
	)

	switch a.cfg.AuthMethod {
	case AuthMethodKubernetes:
		auth, err = a.loginKubernetes(ctx)
	case AuthMethodUserPass:
		auth, err = a.store.LoginUserPass(ctx, a.cfg.UserPass.Username, a.cfg.UserPass.Password)
	case AuthMethodAppRole:
		auth, err = a.loginAppRole(ctx)
	default:
		err = NewConfigurationError("authMethod",
			fmt.Sprintf("unsupported auth method: %q", a.cfg.AuthMethod))
	}

	a.metrics.RecordLogin(a.cfg.AuthMethod, err)
	if err != nil {
		return nil, err
	}

	return &Token{
		ClientToken:   auth.ClientToken,
		Renewable:     auth.Renewable,
		LeaseDuration: time.Duration(auth.LeaseDuration) * time.Second,
		IssuedAt:      a.now(),
	}, nil
}

// loginKubernetes reads the ServiceAccount JWT from disk and logs in with
// it. An unreadable JWT file is fatal.
func (a *Authenticator) loginKubernetes(ctx context.Context) (*vaultapi.SecretAuth, error) {
	jwtPath := a.cfg.Kubernetes.GetJWTTokenPath()

	jwt, err := os.ReadFile(jwtPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account token from %s: %w", jwtPath, err)
	}

	a.logger.Debug("authenticating with service account jwt",
		observability.String("path", jwtPath),
		observability.String("jwt", a.cfg.LogConfidentialityLevel.MaskWithTolerance(string(jwt), ConfidentialityHigh)),
	)

	return a.store.LoginKubernetes(ctx, a.cfg.Kubernetes.Role, string(jwt))
}

// loginAppRole resolves the secret ID and logs in with it.
func (a *Authenticator) loginAppRole(ctx context.Context) (*vaultapi.SecretAuth, error) {
	secretID, err := a.resolveSecretID(ctx)
	if err != nil {
		return nil, err
	}
	return a.store.LoginAppRole(ctx, a.cfg.AppRole.RoleID, secretID)
}

// resolveSecretID returns the literal secret ID from configuration, or
// exchanges the configured wrapping token for it.
func (a *Authenticator) resolveSecretID(ctx context.Context) (string, error) {
	if a.cfg.AppRole.SecretID != "" {
		return a.cfg.AppRole.SecretID, nil
	}
	return a.unwrapper.Unwrap(ctx, unwrapKindSecretID, a.cfg.AppRole.SecretIDWrappingToken, SecretIDExtractor)
}
