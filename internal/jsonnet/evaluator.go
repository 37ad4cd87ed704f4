// Package jsonnet wraps the external jsonnet toolchain. The declarative
// configuration format is opaque to the engine; evaluation happens in a
// subprocess and only the resulting JSON tree is consumed.
package jsonnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Evaluator runs the jsonnet binary plus the jb vendoring tool in a
// scoped working directory.
type Evaluator struct {
	// Binary is the jsonnet executable, "jsonnet" by default.
	Binary string
	// Bundler is the jsonnet-bundler executable, "jb" by default.
	Bundler string
	// Token is exported as GH_TOKEN so jb can fetch the template
	// repository.
	Token string
}

func New(token string) *Evaluator {
	return &Evaluator{Binary: "jsonnet", Bundler: "jb", Token: token}
}

func (e *Evaluator) binary() string {
	if e.Binary != "" {
		return e.Binary
	}
	return "jsonnet"
}

func (e *Evaluator) bundler() string {
	if e.Bundler != "" {
		return e.Bundler
	}
	return "jb"
}

// scopedWorkDir creates a uuid-named working directory that the caller
// must clean up via the returned function.
func scopedWorkDir() (string, func(), error) {
	dir := filepath.Join(os.TempDir(), "otterdog-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("creating work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logrus.Warnf("failed to clean up %s: %v", dir, err)
		}
	}
	return dir, cleanup, nil
}

func (e *Evaluator) run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GH_TOKEN="+e.Token)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("running %s: %w", name, err)
		}
		return nil, fmt.Errorf("running %s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

// vendor fetches the base template repository at the pinned ref into
// dir/vendor using jb.
func (e *Evaluator) vendor(ctx context.Context, dir, templateRepo, templateRef string) error {
	bundle := map[string]any{
		"version": 1,
		"dependencies": []any{
			map[string]any{
				"source":  map[string]any{"git": map[string]any{"remote": templateRepo, "subdir": ""}},
				"version": templateRef,
			},
		},
		"legacyImports": true,
	}
	raw, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "jsonnetfile.json"), raw, 0o600); err != nil {
		return fmt.Errorf("writing jsonnetfile.json: %w", err)
	}
	if _, err := e.run(ctx, dir, e.bundler(), "install"); err != nil {
		return fmt.Errorf("vendoring template %s@%s: %w", templateRepo, templateRef, err)
	}
	return nil
}

// EvaluateOrg evaluates one organization's declarative file against the
// pinned base template and returns the resulting JSON tree.
func (e *Evaluator) EvaluateOrg(ctx context.Context, orgFile, templateRepo, templateRef string) (map[string]any, error) {
	dir, cleanup, err := scopedWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := e.vendor(ctx, dir, templateRepo, templateRef); err != nil {
		return nil, err
	}

	absFile, err := filepath.Abs(orgFile)
	if err != nil {
		return nil, err
	}
	out, err := e.run(ctx, dir, e.binary(), "-J", filepath.Join(dir, "vendor"), absFile)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", orgFile, err)
	}

	var tree map[string]any
	if err := json.Unmarshal(out, &tree); err != nil {
		return nil, fmt.Errorf("parsing evaluator output of %s: %w", orgFile, err)
	}
	return tree, nil
}

// EvaluateSnippet evaluates an inline jsonnet expression with the base
// template vendored, used to obtain template defaults.
func (e *Evaluator) EvaluateSnippet(ctx context.Context, snippet, templateRepo, templateRef string) (map[string]any, error) {
	dir, cleanup, err := scopedWorkDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := e.vendor(ctx, dir, templateRepo, templateRef); err != nil {
		return nil, err
	}
	file := filepath.Join(dir, "snippet.jsonnet")
	if err := os.WriteFile(file, []byte(snippet), 0o600); err != nil {
		return nil, err
	}
	out, err := e.run(ctx, dir, e.binary(), "-J", filepath.Join(dir, "vendor"), file)
	if err != nil {
		return nil, fmt.Errorf("evaluating snippet: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(out, &tree); err != nil {
		return nil, fmt.Errorf("parsing evaluator output: %w", err)
	}
	return tree, nil
}
