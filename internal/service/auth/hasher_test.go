package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		require.NotEqual(t, "password", hash)

		require.NoError(t, hasher.Compare(hash, "password"))
		require.Error(t, hasher.Compare(hash, "wrong"))
	})

	t.Run("long passwords are not truncated", func(t *testing.T) {
		// Raw bcrypt only looks at the first 72 bytes, the sha256 pre-hash
		// must keep longer passwords distinct
		long := strings.Repeat("a", 72)

		hash, err := hasher.Hash(long + "one")
		require.NoError(t, err)

		require.NoError(t, hasher.Compare(hash, long+"one"))
		require.Error(t, hasher.Compare(hash, long+"two"))
	})

	t.Run("same password different hashes", func(t *testing.T) {
		first, err := hasher.Hash("password")
		require.NoError(t, err)
		second, err := hasher.Hash("password")
		require.NoError(t, err)

		require.NotEqual(t, first, second, "bcrypt salts every hash")
	})
}
