package vault

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeStore is an in-memory StoreClient with per-operation call counters.
type fakeStore struct {
	lookupCalls   atomic.Int32
	renewCalls    atomic.Int32
	k8sCalls      atomic.Int32
	userpassCalls atomic.Int32
	appRoleCalls  atomic.Int32
	unwrapCalls   atomic.Int32

	lookupErr error

	renewAuth *vaultapi.SecretAuth
	renewErr  error

	loginAuth *vaultapi.SecretAuth
	loginErr  error

	unwrapSecret *vaultapi.Secret
	unwrapErr    error
	unwrapDelay  time.Duration

	mu           sync.Mutex
	lastRole     string
	lastJWT      string
	lastUsername string
	lastPassword string
	lastRoleID   string
	lastSecretID string
	lastWrapping string
}

func (f *fakeStore) LookupSelf(_ context.Context, _ string) error {
	f.lookupCalls.Add(1)
	return f.lookupErr
}

func (f *fakeStore) RenewSelf(_ context.Context, _ string) (*vaultapi.SecretAuth, error) {
	f.renewCalls.Add(1)
	return f.renewAuth, f.renewErr
}

func (f *fakeStore) LoginKubernetes(_ context.Context, role, jwt string) (*vaultapi.SecretAuth, error) {
	f.k8sCalls.Add(1)
	f.mu.Lock()
	f.lastRole, f.lastJWT = role, jwt
	f.mu.Unlock()
	return f.loginAuth, f.loginErr
}

func (f *fakeStore) LoginUserPass(_ context.Context, username, password string) (*vaultapi.SecretAuth, error) {
	f.userpassCalls.Add(1)
	f.mu.Lock()
	f.lastUsername, f.lastPassword = username, password
	f.mu.Unlock()
	return f.loginAuth, f.loginErr
}

func (f *fakeStore) LoginAppRole(_ context.Context, roleID, secretID string) (*vaultapi.SecretAuth, error) {
	f.appRoleCalls.Add(1)
	f.mu.Lock()
	f.lastRoleID, f.lastSecretID = roleID, secretID
	f.mu.Unlock()
	return f.loginAuth, f.loginErr
}

func (f *fakeStore) Unwrap(_ context.Context, wrappingToken string) (*vaultapi.Secret, error) {
	f.unwrapCalls.Add(1)
	if f.unwrapDelay > 0 {
		time.Sleep(f.unwrapDelay)
	}
	f.mu.Lock()
	f.lastWrapping = wrappingToken
	f.mu.Unlock()
	return f.unwrapSecret, f.unwrapErr
}

func (f *fakeStore) loginCalls() int32 {
	return f.k8sCalls.Load() + f.userpassCalls.Load() + f.appRoleCalls.Load()
}

// forbiddenError builds the store error shape of a 403 self-lookup.
func forbiddenError() error {
	return NewStoreError("lookup-self", &vaultapi.ResponseError{
		StatusCode: http.StatusForbidden,
		Errors:     []string{"permission denied"},
	})
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testMetrics returns metrics bound to a throwaway registry.
func testMetrics() *Metrics {
	return NewMetricsWithRegisterer("test", prometheus.NewRegistry())
}

func renewableAuth(token string, leaseSeconds int) *vaultapi.SecretAuth {
	return &vaultapi.SecretAuth{
		ClientToken:   token,
		Renewable:     true,
		LeaseDuration: leaseSeconds,
	}
}

func nonRenewableAuth(token string, leaseSeconds int) *vaultapi.SecretAuth {
	return &vaultapi.SecretAuth{
		ClientToken:   token,
		Renewable:     false,
		LeaseDuration: leaseSeconds,
	}
}
