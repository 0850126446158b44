// Package secrets reads the tenant registry-credential document from its
// backing store. The document is a JSON array of customer configs; decoding
// belongs to the resolver.
package secrets

import (
	"context"
	"fmt"
	"os"

	"doiregistrar/pkg/platform/sentinel"
)

// Static serves a fixed document. Used for local runs and tests.
type Static struct {
	payload []byte
}

// NewStatic wraps an in-memory document.
func NewStatic(payload []byte) *Static {
	return &Static{payload: payload}
}

// FromEnv reads the document from an environment variable.
func FromEnv(name string) (*Static, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil, fmt.Errorf("secret env %s: %w", name, sentinel.ErrNotFound)
	}
	return NewStatic([]byte(v)), nil
}

// Fetch returns a copy of the document.
func (s *Static) Fetch(_ context.Context) ([]byte, error) {
	out := make([]byte, len(s.payload))
	copy(out, s.payload)
	return out, nil
}
