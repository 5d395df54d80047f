package vault

import (
	"context"
	"fmt"
	"sync"

	vaultapi "github.com/hashicorp/vault/api"
	"golang.org/x/sync/singleflight"

	"github.com/avessio/vaultauth/internal/observability"
)

// ExtractFunc pulls the target field out of an unwrap response.
type ExtractFunc func(*vaultapi.Secret) (string, error)

// ClientTokenExtractor extracts a client token from an unwrapped token-create
// response.
func ClientTokenExtractor(secret *vaultapi.Secret) (string, error) {
	if secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", fmt.Errorf("unwrap response carries no client token: %w", ErrEmptyUnwrapResponse)
	}
	return secret.Auth.ClientToken, nil
}

// SecretIDExtractor extracts an AppRole secret ID from an unwrapped
// secret-id generation response.
func SecretIDExtractor(secret *vaultapi.Secret) (string, error) {
	secretID, ok := secret.Data["secret_id"].(string)
	if !ok || secretID == "" {
		return "", fmt.Errorf("unwrap response carries no secret_id: %w", ErrEmptyUnwrapResponse)
	}
	return secretID, nil
}

// Unwrapper exchanges single-use wrapping tokens for their underlying
// secrets. Each wrapping token is exchanged with the store at most once per
// process; the result is cached permanently and shared by all callers.
//
// Entries are never evicted. A wrapping token is single use upstream, so
// staleness is impossible; unbounded growth over the process lifetime is an
// accepted tradeoff since unwrapping happens only around startup.
type Unwrapper struct {
	store   StoreClient
	level   ConfidentialityLevel
	logger  observability.Logger
	metrics *Metrics

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

// NewUnwrapper creates a new Unwrapper.
func NewUnwrapper(store StoreClient, level ConfidentialityLevel, logger observability.Logger, metrics *Metrics) *Unwrapper {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Unwrapper{
		store:   store,
		level:   level,
		logger:  logger.With(observability.String("component", "vault-unwrap")),
		metrics: metrics,
		cache:   make(map[string]string),
	}
}

// Unwrap returns the secret guarded by the given wrapping token, exchanging
// it with the store on first use. Concurrent callers for the same wrapping
// token share a single in-flight exchange and observe the same value. The
// kind names what is being unwrapped and appears only in logs and errors.
func (u *Unwrapper) Unwrap(ctx context.Context, kind, wrappingToken string, extract ExtractFunc) (string, error) {
	u.mu.RLock()
	value, ok := u.cache[wrappingToken]
	u.mu.RUnlock()
	if ok {
		u.metrics.RecordUnwrapCacheHit()
		return value, nil
	}

	result, err, _ := u.group.Do(wrappingToken, func() (interface{}, error) {
		// A concurrent flight may have populated the cache while this
		// caller waited for the group slot.
		u.mu.RLock()
		cached, ok := u.cache[wrappingToken]
		u.mu.RUnlock()
		if ok {
			return cached, nil
		}

		return u.exchange(ctx, kind, wrappingToken, extract)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// exchange performs the remote unwrap call and caches the extracted value.
func (u *Unwrapper) exchange(ctx context.Context, kind, wrappingToken string, extract ExtractFunc) (string, error) {
	secret, err := u.store.Unwrap(ctx, wrappingToken)
	if err != nil {
		u.metrics.RecordUnwrap(kind, err)
		return "", fmt.Errorf("unable to unwrap %s: %w", kind, err)
	}

	value, err := extract(secret)
	if err != nil {
		u.metrics.RecordUnwrap(kind, err)
		return "", fmt.Errorf("unable to unwrap %s: %w", kind, err)
	}

	u.mu.Lock()
	u.cache[wrappingToken] = value
	u.mu.Unlock()

	u.metrics.RecordUnwrap(kind, nil)
	u.logger.Debug("unwrapped wrapping token",
		observability.String("kind", kind),
		observability.String("value", u.level.MaskWithTolerance(value, ConfidentialityHigh)),
	)

	return value, nil
}
