package credentials

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/go-github/v74/github"
)

// AppInstallation identifies a GitHub App installation whose short-lived
// installation tokens serve as organization credentials.
type AppInstallation struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte
	BaseURL        string
}

// Token mints a fresh installation token. The app JWT is backdated one
// minute to absorb clock skew and expires after ten, the maximum GitHub
// accepts.
func (a AppInstallation) Token(ctx context.Context) (string, time.Time, error) {
	appJWT, err := a.signJWT(time.Now())
	if err != nil {
		return "", time.Time{}, err
	}

	client := github.NewClient(nil).WithAuthToken(appJWT)
	if a.BaseURL != "" && a.BaseURL != "https://api.github.com/" {
		client, err = client.WithEnterpriseURLs(a.BaseURL, a.BaseURL)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("configuring enterprise base URL: %w", err)
		}
	}

	token, _, err := client.Apps.CreateInstallationToken(ctx, a.InstallationID, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating installation token for app %d: %w", a.AppID, err)
	}
	return token.GetToken(), token.GetExpiresAt().Time, nil
}

func (a AppInstallation) signJWT(now time.Time) (string, error) {
	key, err := parsePrivateKey(a.PrivateKeyPEM)
	if err != nil {
		return "", err
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	if err != nil {
		return "", fmt.Errorf("creating JWT signer: %w", err)
	}
	claims := jwt.Claims{
		Issuer:   fmt.Sprintf("%d", a.AppID),
		IssuedAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		Expiry:   jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}
	signed, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("signing app JWT: %w", err)
	}
	return signed, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing app private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("app private key is not an RSA key")
	}
	return key, nil
}
