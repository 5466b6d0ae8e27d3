package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{Time: 1, MemKiB: 1024, Par: 1}

func TestArgon2_HashAndVerify(t *testing.T) {
	h := NewArgon2(testParams)

	encoded, err := h.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify(encoded, "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(encoded, "Secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2_SaltDiffers(t *testing.T) {
	h := NewArgon2(testParams)

	a, err := h.Hash("secret")
	require.NoError(t, err)
	b, err := h.Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestArgon2_VerifyUsesStoredParams(t *testing.T) {
	encoded, err := NewArgon2(testParams).Hash("secret")
	require.NoError(t, err)

	ok, err := NewArgon2(Params{Time: 2, MemKiB: 2048, Par: 2}).Verify(encoded, "secret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2_VerifyMalformed(t *testing.T) {
	h := NewArgon2(testParams)

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "bcrypt", hash: "$2b$10$abcdefghijklmnopqrstuv"},
		{name: "wrong version", hash: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad params", hash: "$argon2id$v=19$m=x$c2FsdA$a2V5"},
		{name: "bad salt", hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := h.Verify(tt.hash, "secret")
			assert.ErrorIs(t, err, ErrMalformedHash)
			assert.False(t, ok)
		})
	}
}
