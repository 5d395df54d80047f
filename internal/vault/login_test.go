package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avessio/vaultauth/internal/observability"
)

func newAuthenticator(t *testing.T, cfg *Config, store *fakeStore) *Authenticator {
	t.Helper()
	u := NewUnwrapper(store, cfg.LogConfidentialityLevel, observability.NopLogger(), testMetrics())
	return NewAuthenticator(cfg, store, u, observability.NopLogger(), testMetrics())
}

func TestLoginKubernetes(t *testing.T) {
	t.Parallel()

	jwtPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(jwtPath, []byte("header.payload.signature"), 0o600))

	store := &fakeStore{loginAuth: renewableAuth("s.k8s", 3600)}
	cfg := &Config{
		AuthMethod: AuthMethodKubernetes,
		Kubernetes: &KubernetesAuthConfig{Role: "my-app", JWTTokenPath: jwtPath},
	}

	auth := newAuthenticator(t, cfg, store)
	token, err := auth.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "s.k8s", token.ClientToken)
	assert.True(t, token.Renewable)
	assert.Equal(t, time.Hour, token.LeaseDuration)
	assert.Equal(t, "my-app", store.lastRole)
	assert.Equal(t, "header.payload.signature", store.lastJWT)
}

func TestLoginKubernetesJWTUnreadable(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loginAuth: renewableAuth("s.k8s", 3600)}
	cfg := &Config{
		AuthMethod: AuthMethodKubernetes,
		Kubernetes: &KubernetesAuthConfig{Role: "my-app", JWTTokenPath: filepath.Join(t.TempDir(), "missing")},
	}

	auth := newAuthenticator(t, cfg, store)
	_, err := auth.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account token")
	assert.Equal(t, int32(0), store.k8sCalls.Load(), "no login without a readable jwt")
}

func TestLoginUserPass(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loginAuth: renewableAuth("s.userpass", 1800)}
	cfg := &Config{
		AuthMethod: AuthMethodUserPass,
		UserPass:   &UserPassAuthConfig{Username: "alice", Password: "hunter2"},
	}

	auth := newAuthenticator(t, cfg, store)
	token, err := auth.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "s.userpass", token.ClientToken)
	assert.Equal(t, "alice", store.lastUsername)
	assert.Equal(t, "hunter2", store.lastPassword)
}

func TestLoginAppRoleLiteralSecretID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loginAuth: renewableAuth("s.approle", 3600)}
	cfg := &Config{
		AuthMethod: AuthMethodAppRole,
		AppRole:    &AppRoleAuthConfig{RoleID: "rid", SecretID: "sid"},
	}

	auth := newAuthenticator(t, cfg, store)
	token, err := auth.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "s.approle", token.ClientToken)
	assert.Equal(t, "rid", store.lastRoleID)
	assert.Equal(t, "sid", store.lastSecretID)
	assert.Equal(t, int32(0), store.unwrapCalls.Load(), "literal secret id must not be unwrapped")
}

func TestLoginAppRoleWrappedSecretID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		loginAuth:    renewableAuth("s.approle", 3600),
		unwrapSecret: secretIDResponse("unwrapped-sid"),
	}
	cfg := &Config{
		AuthMethod: AuthMethodAppRole,
		AppRole:    &AppRoleAuthConfig{RoleID: "rid", SecretIDWrappingToken: "s.wrap"},
	}

	auth := newAuthenticator(t, cfg, store)

	// two logins exchange the wrapping token only once
	for i := 0; i < 2; i++ {
		token, err := auth.Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "s.approle", token.ClientToken)
	}

	assert.Equal(t, "unwrapped-sid", store.lastSecretID)
	assert.Equal(t, "s.wrap", store.lastWrapping)
	assert.Equal(t, int32(1), store.unwrapCalls.Load())
	assert.Equal(t, int32(2), store.appRoleCalls.Load())
}

func TestLoginUnsupportedMethod(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cfg := &Config{AuthMethod: "ldap"}

	auth := newAuthenticator(t, cfg, store)
	_, err := auth.Login(context.Background())
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unsupported auth method")
}

func TestLoginNormalizesIssuedAt(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loginAuth: renewableAuth("s.userpass", 1800)}
	cfg := &Config{
		AuthMethod: AuthMethodUserPass,
		UserPass:   &UserPassAuthConfig{Username: "alice", Password: "hunter2"},
	}

	issued := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	auth := newAuthenticator(t, cfg, store)
	auth.now = func() time.Time { return issued }

	token, err := auth.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, issued, token.IssuedAt)
	assert.Equal(t, issued.Add(30*time.Minute), token.ExpiresAt())
}
