package config

import (
	"context"
	"fmt"

	"github.com/eclipse-csi/otterdog-sub000/internal/credentials"
)

// ResolveCredentials turns the organization's credential configuration
// into usable credentials, resolving secret references and minting a
// GitHub-App installation token when that provider is selected.
func (o *Organization) ResolveCredentials(ctx context.Context, resolver *credentials.Resolver) (credentials.Credentials, error) {
	var creds credentials.Credentials

	resolve := func(ref string) (string, error) {
		if ref == "" {
			return "", nil
		}
		return resolver.ResolveSecret(ctx, ref)
	}

	var err error
	if creds.Username, err = resolve(o.Credentials.Username); err != nil {
		return creds, fmt.Errorf("resolving username for %s: %w", o.Name, err)
	}
	if creds.Password, err = resolve(o.Credentials.Password); err != nil {
		return creds, fmt.Errorf("resolving password for %s: %w", o.Name, err)
	}
	if creds.TOTPSeed, err = resolve(o.Credentials.TwoFASeed); err != nil {
		return creds, fmt.Errorf("resolving 2fa seed for %s: %w", o.Name, err)
	}

	if o.Credentials.Provider == "github-app" {
		pem, err := resolve(o.Credentials.PrivateKey)
		if err != nil {
			return creds, fmt.Errorf("resolving app key for %s: %w", o.Name, err)
		}
		app := &credentials.AppInstallation{
			AppID:          o.Credentials.AppID,
			InstallationID: o.Credentials.InstallationID,
			PrivateKeyPEM:  []byte(pem),
		}
		creds.Token, _, err = app.Token(ctx)
		if err != nil {
			return creds, fmt.Errorf("minting app token for %s: %w", o.Name, err)
		}
		return creds, nil
	}

	if creds.Token, err = resolve(o.Credentials.APIToken); err != nil {
		return creds, fmt.Errorf("resolving token for %s: %w", o.Name, err)
	}
	if creds.Token == "" {
		return creds, fmt.Errorf("no api token configured for %s", o.Name)
	}
	return creds, nil
}
