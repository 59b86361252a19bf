package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := New()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestShareTokenEntropy(t *testing.T) {
	a, err := NewShareToken()
	require.NoError(t, err)
	b, err := NewShareToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// 16 bytes base64url without padding.
	assert.Len(t, a, 22)
}

func TestSessionSecretLength(t *testing.T) {
	s, err := NewSessionSecret()
	require.NoError(t, err)
	// 32 bytes base64url without padding.
	assert.Len(t, s, 43)
}

func TestShareTokenDisjointFromIDs(t *testing.T) {
	// Surrogate ids are 27-char ksuid; share tokens are 22-char base64url.
	// The two namespaces cannot collide.
	id := New()
	token, err := NewShareToken()
	require.NoError(t, err)
	assert.NotEqual(t, len(id), len(token))
}
