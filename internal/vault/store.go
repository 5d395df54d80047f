package vault

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/avessio/vaultauth/internal/observability"
)

// Default auth mount paths.
const (
	// DefaultKubernetesMountPath is the default mount path for Kubernetes auth.
	DefaultKubernetesMountPath = "kubernetes"

	// DefaultAppRoleMountPath is the default mount path for AppRole auth.
	DefaultAppRoleMountPath = "approle"

	// DefaultUserPassMountPath is the default mount path for userpass auth.
	DefaultUserPassMountPath = "userpass"
)

// StoreClient is the surface of the remote secret store consumed by the
// token lifecycle. All operations are synchronous; timeouts, retries, and
// cancellation belong to the transport behind it.
type StoreClient interface {
	// LookupSelf validates the given client token against the store.
	LookupSelf(ctx context.Context, clientToken string) error

	// RenewSelf extends the lease of the given client token.
	RenewSelf(ctx context.Context, clientToken string) (*vaultapi.SecretAuth, error)

	// LoginKubernetes logs in with a Vault role and a ServiceAccount JWT.
	LoginKubernetes(ctx context.Context, role, jwt string) (*vaultapi.SecretAuth, error)

	// LoginUserPass logs in with a username and password.
	LoginUserPass(ctx context.Context, username, password string) (*vaultapi.SecretAuth, error)

	// LoginAppRole logs in with a role ID and secret ID.
	LoginAppRole(ctx context.Context, roleID, secretID string) (*vaultapi.SecretAuth, error)

	// Unwrap exchanges a single-use wrapping token for its payload.
	Unwrap(ctx context.Context, wrappingToken string) (*vaultapi.Secret, error)
}

// apiStore implements StoreClient over the Vault HTTP API client.
type apiStore struct {
	api     *vaultapi.Client
	logger  observability.Logger
	metrics *Metrics

	kubernetesMountPath string
	appRoleMountPath    string
	userPassMountPath   string
}

// StoreOption is a functional option for configuring the store client.
type StoreOption func(*apiStore)

// WithStoreMetrics sets the metrics recorder for the store client.
func WithStoreMetrics(metrics *Metrics) StoreOption {
	return func(s *apiStore) {
		s.metrics = metrics
	}
}

// WithKubernetesMountPath overrides the Kubernetes auth mount path.
func WithKubernetesMountPath(path string) StoreOption {
	return func(s *apiStore) {
		s.kubernetesMountPath = path
	}
}

// WithAppRoleMountPath overrides the AppRole auth mount path.
func WithAppRoleMountPath(path string) StoreOption {
	return func(s *apiStore) {
		s.appRoleMountPath = path
	}
}

// WithUserPassMountPath overrides the userpass auth mount path.
func WithUserPassMountPath(path string) StoreOption {
	return func(s *apiStore) {
		s.userPassMountPath = path
	}
}

// NewAPIStore creates a StoreClient backed by a Vault API client.
func NewAPIStore(api *vaultapi.Client, logger observability.Logger, opts ...StoreOption) (StoreClient, error) {
	if api == nil {
		return nil, NewConfigurationError("", "vault api client is nil")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	s := &apiStore{
		api:                 api,
		logger:              logger.With(observability.String("component", "vault-store")),
		kubernetesMountPath: DefaultKubernetesMountPath,
		appRoleMountPath:    DefaultAppRoleMountPath,
		userPassMountPath:   DefaultUserPassMountPath,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// LookupSelf implements StoreClient.
func (s *apiStore) LookupSelf(ctx context.Context, clientToken string) error {
	start := time.Now()

	client, err := s.withToken(clientToken)
	if err != nil {
		return err
	}

	_, err = client.Auth().Token().LookupSelfWithContext(ctx)
	s.metrics.RecordStoreRequest("lookup_self", err, time.Since(start))
	if err != nil {
		return NewStoreError("lookup-self", err)
	}
	return nil
}

// RenewSelf implements StoreClient. The renew increment is left to the
// server default.
func (s *apiStore) RenewSelf(ctx context.Context, clientToken string) (*vaultapi.SecretAuth, error) {
	start := time.Now()

	client, err := s.withToken(clientToken)
	if err != nil {
		return nil, err
	}

	secret, err := client.Auth().Token().RenewSelfWithContext(ctx, 0)
	s.metrics.RecordStoreRequest("renew_self", err, time.Since(start))
	if err != nil {
		return nil, NewStoreError("renew-self", err)
	}
	return authOf("renew-self", secret)
}

// LoginKubernetes implements StoreClient.
func (s *apiStore) LoginKubernetes(ctx context.Context, role, jwt string) (*vaultapi.SecretAuth, error) {
	path := fmt.Sprintf("auth/%s/login", s.kubernetesMountPath)
	data := map[string]interface{}{
		"role": role,
		"jwt":  jwt,
	}
	return s.login(ctx, "login_kubernetes", path, data)
}

// LoginUserPass implements StoreClient.
func (s *apiStore) LoginUserPass(ctx context.Context, username, password string) (*vaultapi.SecretAuth, error) {
	// The username becomes a path segment; reject traversal outright.
	if strings.Contains(username, "..") || strings.Contains(username, "/") {
		return nil, NewConfigurationError("userpass.username", "invalid username")
	}

	path := fmt.Sprintf("auth/%s/login/%s", s.userPassMountPath, url.PathEscape(username))
	data := map[string]interface{}{
		"password": password,
	}
	return s.login(ctx, "login_userpass", path, data)
}

// LoginAppRole implements StoreClient.
func (s *apiStore) LoginAppRole(ctx context.Context, roleID, secretID string) (*vaultapi.SecretAuth, error) {
	path := fmt.Sprintf("auth/%s/login", s.appRoleMountPath)
	data := map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	}
	return s.login(ctx, "login_approle", path, data)
}

// Unwrap implements StoreClient.
func (s *apiStore) Unwrap(ctx context.Context, wrappingToken string) (*vaultapi.Secret, error) {
	start := time.Now()

	secret, err := s.api.Logical().UnwrapWithContext(ctx, wrappingToken)
	s.metrics.RecordStoreRequest("unwrap", err, time.Since(start))
	if err != nil {
		return nil, NewStoreError("unwrap", err)
	}
	if secret == nil {
		return nil, NewStoreError("unwrap", ErrEmptyUnwrapResponse)
	}
	return secret, nil
}

// login performs a login write against an auth mount and extracts the auth
// block from the response.
func (s *apiStore) login(ctx context.Context, operation, path string, data map[string]interface{}) (*vaultapi.SecretAuth, error) {
	start := time.Now()

	secret, err := s.api.Logical().WriteWithContext(ctx, path, data)
	s.metrics.RecordStoreRequest(operation, err, time.Since(start))
	if err != nil {
		return nil, NewStoreError(operation, err)
	}

	s.logger.Debug("store login succeeded", observability.String("operation", operation))
	return authOf(operation, secret)
}

// withToken returns a client for requests authenticated with the given
// token. The shared client is cloned so its own token is never touched.
func (s *apiStore) withToken(clientToken string) (*vaultapi.Client, error) {
	client, err := s.api.Clone()
	if err != nil {
		return nil, NewStoreError("clone", err)
	}
	client.SetToken(clientToken)
	return client, nil
}

// authOf extracts the auth block from a store response.
func authOf(op string, secret *vaultapi.Secret) (*vaultapi.SecretAuth, error) {
	if secret == nil || secret.Auth == nil {
		return nil, NewStoreError(op, ErrEmptyAuthResponse)
	}
	return secret.Auth, nil
}
