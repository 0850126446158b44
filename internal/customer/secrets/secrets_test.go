package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doiregistrar/pkg/platform/sentinel"
)

func TestStatic_FetchReturnsCopy(t *testing.T) {
	s := NewStatic([]byte(`[]`))
	first, err := s.Fetch(context.Background())
	require.NoError(t, err)
	first[0] = 'x'

	second, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(second))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DOI_TEST_SECRETS", `[{"customerId":"https://example.org/c/1"}]`)
	s, err := FromEnv("DOI_TEST_SECRETS")
	require.NoError(t, err)
	payload, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(payload), "example.org")

	_, err = FromEnv("DOI_TEST_SECRETS_MISSING")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
