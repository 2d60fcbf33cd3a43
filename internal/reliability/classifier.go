// Package reliability classifies transient upstream failures and computes
// retry delays for them.
package reliability

import "time"

// IsRetryableHTTPStatus reports whether a provider HTTP status is worth
// retrying. Client errors other than 429 mean the request itself is bad and
// a retry would fail the same way.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
