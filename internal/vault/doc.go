// Package vault manages the lifecycle of a HashiCorp Vault client token.
//
// The package acquires, validates, renews, and re-acquires an authentication
// token, and exchanges single-use wrapping tokens for real credentials with
// an exactly-once guarantee.
//
// # Authentication Methods
//
// Four mutually exclusive authentication methods are supported:
//
// Token authentication supplies the client token directly, either as a
// literal value or as a wrapping token that is unwrapped once. With this
// method the token lifecycle is managed out of band by the caller; the
// manager performs no validation, renewal, or caching.
//
//	cfg := &vault.Config{
//	    AuthMethod: vault.AuthMethodToken,
//	    Token:      "s.xxxxx",
//	}
//
// Kubernetes authentication reads a ServiceAccount JWT from disk and logs in
// against the Kubernetes auth mount:
//
//	cfg := &vault.Config{
//	    AuthMethod: vault.AuthMethodKubernetes,
//	    Kubernetes: &vault.KubernetesAuthConfig{
//	        Role: "my-app-role",
//	    },
//	}
//
// Userpass and AppRole authentication use credentials from configuration;
// the AppRole secret ID may instead be supplied as a wrapping token:
//
//	cfg := &vault.Config{
//	    AuthMethod: vault.AuthMethodAppRole,
//	    AppRole: &vault.AppRoleAuthConfig{
//	        RoleID:                "role-id",
//	        SecretIDWrappingToken: "s.wrapped",
//	    },
//	}
//
// # Token Lifecycle
//
// Manager.ClientToken validates the cached token against the token
// self-lookup endpoint (a 403 simply discards the token), renews it when its
// remaining time to live falls inside the configured grace period, and logs
// in again when no usable token remains. The resulting token must outlive
// the grace period, otherwise a configuration error is returned rather than
// a token that would be renewed on every call.
//
// # Wrapping Tokens
//
// A wrapping token is single use upstream, so the Unwrapper guarantees that
// each wrapping token is exchanged at most once per process. Concurrent
// callers for the same token share one exchange and observe the same value.
//
// # Confidentiality
//
// Secret material written to logs passes through ConfidentialityLevel
// masking. The configured level decides whether a value requested at a given
// minimum tolerance is shown or replaced with a placeholder. Masking applies
// to log output only, never to returned values or errors.
//
// # Metrics
//
// The package exposes Prometheus metrics:
//
//   - vaultauth_store_requests_total{operation,status}
//   - vaultauth_store_request_duration_seconds{operation}
//   - vaultauth_logins_total{method,status}
//   - vaultauth_unwraps_total{kind,status}
//   - vaultauth_unwrap_cache_hits_total
//   - vaultauth_token_expiry_timestamp_seconds
package vault
