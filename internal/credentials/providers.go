package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// PlainProvider treats the key itself as the secret value. Useful for
// non-sensitive values and test fixtures.
type PlainProvider struct{}

func (PlainProvider) GetSecret(_ context.Context, key string) (string, error) {
	return key, nil
}

// EnvProvider reads secrets from the process environment.
type EnvProvider struct{}

func (EnvProvider) GetSecret(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", key)
	}
	return value, nil
}

// PassProvider reads secrets from the standard unix password store by
// invoking the pass binary. An optional prefix is prepended to every
// store path.
type PassProvider struct {
	Prefix string
}

func (p PassProvider) GetSecret(ctx context.Context, key string) (string, error) {
	path := key
	if p.Prefix != "" {
		path = strings.TrimSuffix(p.Prefix, "/") + "/" + key
	}
	out, err := exec.CommandContext(ctx, "pass", "show", path).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("pass show %s: %s", path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("pass show %s: %w", path, err)
	}
	secret, _, _ := strings.Cut(string(out), "\n")
	if secret == "" {
		return "", fmt.Errorf("pass entry %s is empty", path)
	}
	return secret, nil
}

// InMemoryProvider serves secrets from a fixed map.
type InMemoryProvider struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewInMemoryProvider(secrets map[string]string) *InMemoryProvider {
	copied := make(map[string]string, len(secrets))
	for k, v := range secrets {
		copied[k] = v
	}
	return &InMemoryProvider{secrets: copied}
}

func (p *InMemoryProvider) GetSecret(_ context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.secrets[key]
	if !ok {
		return "", fmt.Errorf("no secret stored under %q", key)
	}
	return value, nil
}
