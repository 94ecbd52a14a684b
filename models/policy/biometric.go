// Package policy holds the rules that gate settlement confirmation.
package policy

// DefaultStrongAuthThreshold is the settlement amount, in minor units, from
// which strong authentication is required (5000.00 in a two-decimal currency).
const DefaultStrongAuthThreshold int64 = 500000

// RequiresStrongAuth reports whether confirming a settlement of amount needs
// strong authentication under threshold.
func RequiresStrongAuth(amount, threshold int64) bool {
	return amount >= threshold
}

// BiometricPolicy is RequiresStrongAuth bound to a configured threshold.
type BiometricPolicy struct {
	threshold int64
}

// NewBiometricPolicy returns a policy using threshold, or
// DefaultStrongAuthThreshold when threshold is not positive.
func NewBiometricPolicy(threshold int64) BiometricPolicy {
	if threshold <= 0 {
		threshold = DefaultStrongAuthThreshold
	}
	return BiometricPolicy{threshold: threshold}
}

// Threshold returns the amount from which strong authentication applies.
func (p BiometricPolicy) Threshold() int64 {
	if p.threshold <= 0 {
		return DefaultStrongAuthThreshold
	}
	return p.threshold
}

// RequiresStrongAuth reports whether amount needs strong authentication.
func (p BiometricPolicy) RequiresStrongAuth(amount int64) bool {
	return RequiresStrongAuth(amount, p.Threshold())
}
