package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestPINRoundTrip(t *testing.T) {
	hash, err := HashPIN("4071", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "4071", hash)

	assert.True(t, VerifyPIN(hash, "4071"))
	assert.False(t, VerifyPIN(hash, "4072"))
	assert.False(t, VerifyPIN("", "4071"))
}
