// Package credentials resolves the tokens and secrets the engine needs
// at runtime. Declarative configurations never contain secret material;
// they contain references of the form "provider:key" that are resolved
// lazily, at the moment a write operation actually needs the value.
package credentials

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Credentials is the bundle required to talk to one organization. Token
// auth covers the REST and GraphQL clients; the remaining fields are
// only needed for web-UI operations.
type Credentials struct {
	Token    string
	Username string
	Password string
	TOTPSeed string
}

// HasWebCredentials reports whether web-UI operations can be attempted.
func (c Credentials) HasWebCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// SecretProvider resolves a key within one secret backend.
type SecretProvider interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// Resolver dispatches secret references to registered backends and
// memoizes resolved values so a secret used by several patches is only
// fetched once.
type Resolver struct {
	mu        sync.Mutex
	providers map[string]SecretProvider
	cache     map[string]string
}

// NewResolver returns a resolver with the built-in backends registered:
// "plain" (the key is the value), "env" (environment variable) and
// "pass" (the standard unix password store).
func NewResolver() *Resolver {
	r := &Resolver{
		providers: map[string]SecretProvider{},
		cache:     map[string]string{},
	}
	r.Register("plain", PlainProvider{})
	r.Register("env", EnvProvider{})
	r.Register("pass", PassProvider{})
	return r
}

// Register adds or replaces a backend under the given name.
func (r *Resolver) Register(name string, provider SecretProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// ResolveSecret resolves a "provider:key" reference. Values without a
// registered provider prefix are returned unchanged, which lets plain
// values coexist with references in the same configuration.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, key, ok := strings.Cut(ref, ":")
	if !ok {
		return ref, nil
	}

	r.mu.Lock()
	provider, registered := r.providers[name]
	if cached, hit := r.cache[ref]; hit {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	if !registered {
		return ref, nil
	}
	value, err := provider.GetSecret(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolving secret %q: %w", ref, err)
	}
	r.mu.Lock()
	r.cache[ref] = value
	r.mu.Unlock()
	return value, nil
}
