package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCryptoRandomString(t *testing.T) {
	r := New()

	s := r.String(32, TokenAlphabet)
	assert.Len(t, s, 32)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(TokenAlphabet, c), "unexpected rune %q", c)
	}

	assert.NotEqual(t, s, r.String(32, TokenAlphabet))
	assert.Empty(t, r.String(0, TokenAlphabet))
	assert.Empty(t, r.String(8, ""))
}

func TestCryptoRandomIntn(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Intn(0))
	for i := 0; i < 100; i++ {
		n := r.Intn(5)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 5)
	}
}
