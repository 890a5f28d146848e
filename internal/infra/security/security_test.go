package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("secret-pass")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "secret-pass"))
	assert.ErrorIs(t, h.Compare(hash, "other"), ErrPasswordMismatch)
}

func TestRandomTokenGenerator(t *testing.T) {
	g := RandomTokenGenerator{Size: 16}
	a, err := g.NewToken()
	require.NoError(t, err)
	b, err := g.NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 22)
}
