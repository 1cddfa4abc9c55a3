package provider

import "strings"

// RetryCategory names why an error is considered transient and worth
// retrying. The empty string means "not retryable".
type RetryCategory string

const (
	CategoryRateLimited RetryCategory = "Rate limited"
	CategoryTimeout     RetryCategory = "Request timed out"
	CategoryNetwork     RetryCategory = "Network error"
	CategoryServerError RetryCategory = "Server error"
)

// ClassifyRetry inspects an error message (case-insensitively) and returns
// the retry category it falls into, in priority order: rate limiting is
// checked before timeouts, timeouts before network errors, network errors
// before generic server errors. Returns "", false when nothing matches,
// meaning the caller should not retry.
func ClassifyRetry(errMsg string) (RetryCategory, bool) {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") {
		return CategoryRateLimited, true
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") {
		return CategoryTimeout, true
	}
	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") ||
		strings.Contains(lower, "dns") || strings.Contains(lower, "resolve") {
		return CategoryNetwork, true
	}
	if strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "504") ||
		strings.Contains(lower, "server error") || strings.Contains(lower, "internal error") ||
		strings.Contains(lower, "service unavailable") || strings.Contains(lower, "bad gateway") {
		return CategoryServerError, true
	}

	return "", false
}
