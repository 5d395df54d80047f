package vault

import (
	"fmt"
	"time"
)

// Token is a materialized authentication credential with a clock-based
// expiry and a renewability flag. Tokens are immutable snapshots; the
// lifecycle manager replaces the cached token rather than mutating it.
type Token struct {
	// ClientToken is the Vault client token value.
	ClientToken string

	// Renewable indicates whether the token lease can be extended.
	Renewable bool

	// LeaseDuration is the lifetime granted at issue time.
	LeaseDuration time.Duration

	// IssuedAt is when the token was obtained.
	IssuedAt time.Time
}

// ExpiresAt returns the token expiry instant.
func (t *Token) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.LeaseDuration)
}

// IsExpired returns true if the token has expired at the given instant.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// ExpiresSoon returns true if the remaining time to live is within the
// grace period.
func (t *Token) ExpiresSoon(now time.Time, grace time.Duration) bool {
	return t.ExpiresAt().Sub(now) <= grace
}

// ShouldExtend returns true if the token is worth renewing: renewable, not
// yet expired, and inside the grace period.
func (t *Token) ShouldExtend(now time.Time, grace time.Duration) bool {
	return t.Renewable && !t.IsExpired(now) && t.ExpiresSoon(now, grace)
}

// SanityCheck verifies that the lease outlives the renew grace period. A
// token whose lease is not longer than the grace period would be classified
// as expiring soon relative to its own lifetime, and renewals could never be
// amortized. The violation is a configuration error, never clamped.
func (t *Token) SanityCheck(name string, grace time.Duration) error {
	if t.LeaseDuration <= grace {
		return NewConfigurationError("renewGracePeriod",
			fmt.Sprintf("lease duration %s for %s is not greater than the renew grace period %s",
				t.LeaseDuration, name, grace))
	}
	return nil
}

// ConfidentialInfo returns a log-safe view of the token. The client token
// value is shown only when the configured level tolerates secret material.
func (t *Token) ConfidentialInfo(level ConfidentialityLevel) string {
	return fmt.Sprintf("{clientToken: %s, renewable: %t, leaseDuration: %s}",
		level.MaskWithTolerance(t.ClientToken, ConfidentialityHigh), t.Renewable, t.LeaseDuration)
}
