package wgkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	// Base64 of 32 bytes
	assert.Len(t, kp.PrivateKey, 44)
	assert.Len(t, kp.PublicKey, 44)
	assert.NotEqual(t, kp.PrivateKey, kp.PublicKey)

	pub, err := PublicKey(kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pub)
}

func TestGenerate_Unique(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
}

func TestPublicKey_Invalid(t *testing.T) {
	_, err := PublicKey("garbage")
	assert.Error(t, err)
}
