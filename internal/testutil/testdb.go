package testutil

import (
	"testing"

	"table-cache-api/internal/logging"
	"table-cache-api/internal/registry"
)

// NewRegistry returns a registry over a fresh temp directory. It is closed
// when the test ends.
func NewRegistry(t testing.TB, maxEntries int, pub registry.Publisher) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.Options{
		Dir:        t.TempDir(),
		MaxEntries: maxEntries,
		Logger:     logging.Discard(),
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}
