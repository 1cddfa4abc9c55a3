package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRetryRateLimit(t *testing.T) {
	cat, ok := ClassifyRetry("HTTP 429: rate limit exceeded")
	assert.True(t, ok)
	assert.Equal(t, CategoryRateLimited, cat)
}

func TestClassifyRetryTimeout(t *testing.T) {
	cases := []string{
		"request timeout",
		"operation timed out",
		"context deadline exceeded",
	}
	for _, c := range cases {
		cat, ok := ClassifyRetry(c)
		assert.True(t, ok, c)
		assert.Equal(t, CategoryTimeout, cat, c)
	}
}

func TestClassifyRetryNetworkError(t *testing.T) {
	cases := []string{
		"connection refused",
		"network is unreachable",
		"dns lookup failed",
		"failed to resolve host",
	}
	for _, c := range cases {
		cat, ok := ClassifyRetry(c)
		assert.True(t, ok, c)
		assert.Equal(t, CategoryNetwork, cat, c)
	}
}

func TestClassifyRetryServerError(t *testing.T) {
	cases := []string{
		"HTTP 500: internal server error",
		"HTTP 502: bad gateway",
		"HTTP 503: service unavailable",
		"HTTP 504",
	}
	for _, c := range cases {
		cat, ok := ClassifyRetry(c)
		assert.True(t, ok, c)
		assert.Equal(t, CategoryServerError, cat, c)
	}
}

func TestClassifyRetryNonRetryable(t *testing.T) {
	cases := []string{
		"invalid api key",
		"HTTP 400: bad request",
		"model not found",
	}
	for _, c := range cases {
		_, ok := ClassifyRetry(c)
		assert.False(t, ok, c)
	}
}

func TestClassifyRetryPriorityOrder(t *testing.T) {
	// contains both "429" and "server error" substrings; rate limit wins
	cat, ok := ClassifyRetry("429 server error")
	assert.True(t, ok)
	assert.Equal(t, CategoryRateLimited, cat)
}
