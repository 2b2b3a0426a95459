package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifiesCorrectPlaintext(t *testing.T) {
	t.Parallel()

	digest, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.True(t, CheckPassword("s3cret!", digest))
	assert.False(t, CheckPassword("wrong", digest))
}

func TestHashPassword_SaltDiffersAcrossCalls(t *testing.T) {
	t.Parallel()

	d1, err := HashPassword("same input")
	require.NoError(t, err)
	d2, err := HashPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.True(t, CheckPassword("same input", d1))
	assert.True(t, CheckPassword("same input", d2))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPassword("anything", "not-a-bcrypt-digest"))
	assert.False(t, CheckPassword("anything", ""))
}
