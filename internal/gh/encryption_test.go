package gh

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

func TestSealSecretRoundTrip(t *testing.T) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)
	publicKeyB64 := base64.StdEncoding.EncodeToString(publicKey[:])

	sealed, err := sealSecret("s3cr3t-value", publicKeyB64)
	require.NoError(t, err)

	cipher, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	plaintext, ok := box.OpenAnonymous(nil, cipher, publicKey, privateKey)
	require.True(t, ok)
	assert.Equal(t, "s3cr3t-value", string(plaintext))
}

func TestSealSecretRejectsBadKeys(t *testing.T) {
	_, err := sealSecret("value", "not-base64!!!")
	require.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err = sealSecret("value", short)
	require.Error(t, err)
}
