package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTimeout bounds the contexts returned by Context.
const DefaultTimeout = 10 * time.Second

// Context returns a context that ends with the test or after DefaultTimeout.
func Context(t testing.TB) context.Context {
	return ContextWithTimeout(t, DefaultTimeout)
}

// ContextWithTimeout is Context with a custom deadline.
func ContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	t.Helper()
	if timeout <= 0 {
		t.Fatalf("testutil: context timeout must be positive, got %s", timeout)
	}
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	t.Cleanup(cancel)
	return ctx
}
