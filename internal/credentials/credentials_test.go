package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverPlainProvider(t *testing.T) {
	r := NewResolver()
	value, err := r.ResolveSecret(context.Background(), "plain:hunter2")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestResolverEnvProvider(t *testing.T) {
	t.Setenv("OTTERDOG_TEST_SECRET", "from-env")
	r := NewResolver()
	value, err := r.ResolveSecret(context.Background(), "env:OTTERDOG_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = r.ResolveSecret(context.Background(), "env:OTTERDOG_TEST_SECRET_MISSING")
	require.Error(t, err)
}

func TestResolverPassesThroughUnknownReferences(t *testing.T) {
	r := NewResolver()

	value, err := r.ResolveSecret(context.Background(), "no-colon-at-all")
	require.NoError(t, err)
	assert.Equal(t, "no-colon-at-all", value)

	value, err = r.ResolveSecret(context.Background(), "vault:some/path")
	require.NoError(t, err)
	assert.Equal(t, "vault:some/path", value, "unregistered providers pass through")
}

type countingProvider struct {
	calls int
}

func (p *countingProvider) GetSecret(_ context.Context, key string) (string, error) {
	p.calls++
	return "value-of-" + key, nil
}

func TestResolverMemoizes(t *testing.T) {
	provider := &countingProvider{}
	r := NewResolver()
	r.Register("counting", provider)

	for i := 0; i < 3; i++ {
		value, err := r.ResolveSecret(context.Background(), "counting:api-key")
		require.NoError(t, err)
		assert.Equal(t, "value-of-api-key", value)
	}
	assert.Equal(t, 1, provider.calls)
}

func TestHasWebCredentials(t *testing.T) {
	assert.False(t, Credentials{Token: "t"}.HasWebCredentials())
	assert.False(t, Credentials{Username: "u"}.HasWebCredentials())
	assert.True(t, Credentials{Username: "u", Password: "p"}.HasWebCredentials())
}

// Vectors from RFC 6238 appendix B, SHA-1 rows, truncated to 6 digits.
func TestTOTPCode(t *testing.T) {
	// base32 of the ASCII seed "12345678901234567890".
	seed := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	for _, tc := range []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	} {
		code, err := TOTPCode(seed, time.Unix(tc.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tc.want, code, "t=%d", tc.unix)
	}
}

func TestTOTPCodeNormalizesSeed(t *testing.T) {
	reference, err := TOTPCode("GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", time.Unix(59, 0))
	require.NoError(t, err)

	spaced, err := TOTPCode("gezd gnbv gy3t qojq gezd gnbv gy3t qojq", time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, reference, spaced)

	_, err = TOTPCode("not!base32", time.Unix(59, 0))
	require.Error(t, err)
}
