package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrivateKeyPEM(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return pemBytes, key
}

func TestSignJWTClaims(t *testing.T) {
	pemBytes, key := testPrivateKeyPEM(t)
	app := AppInstallation{AppID: 314, InstallationID: 1, PrivateKeyPEM: pemBytes}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	signed, err := app.signJWT(now)
	require.NoError(t, err)

	parsed, err := jwt.ParseSigned(signed)
	require.NoError(t, err)
	var claims jwt.Claims
	require.NoError(t, parsed.Claims(&key.PublicKey, &claims))

	assert.Equal(t, "314", claims.Issuer)
	assert.Equal(t, now.Add(-time.Minute).Unix(), claims.IssuedAt.Time().Unix(),
		"issued-at is backdated to absorb clock skew")
	assert.Equal(t, now.Add(10*time.Minute).Unix(), claims.Expiry.Time().Unix())
}

func TestParsePrivateKeyPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	parsed, err := parsePrivateKey(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, key.N, parsed.N)
}

func TestParsePrivateKeyRejectsGarbage(t *testing.T) {
	_, err := parsePrivateKey([]byte("not a pem block"))
	require.Error(t, err)
}
