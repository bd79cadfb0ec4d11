package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	hashers := map[string]PasswordHasher{
		"bcrypt":   NewBcryptHasher(bcrypt.MinCost),
		"argon2id": NewArgon2Hasher(),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("pw1234")
			require.NoError(t, err)

			assert.NotEqual(t, "pw1234", hash)
			assert.NotContains(t, hash, "pw1234")
			assert.True(t, h.Compare(hash, "pw1234"))
			assert.False(t, h.Compare(hash, "pw12345"))
			assert.False(t, h.Compare(hash, ""))
			assert.False(t, h.Compare("garbage", "pw1234"))

			again, err := h.Hash("pw1234")
			require.NoError(t, err)
			assert.NotEqual(t, hash, again, "salt must differ per hash")
		})
	}
}

func TestBcryptHasher_Cost(t *testing.T) {
	hash, err := NewBcryptHasher(10).Hash("pw1234")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestBcryptHasher_TooLong(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("p", 73))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestArgon2Hasher_Encoding(t *testing.T) {
	hash, err := NewArgon2Hasher().Hash("pw1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
