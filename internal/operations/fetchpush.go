package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

// remoteConfigPath is where the declaration lives inside the
// organization's config repository.
func (o *OrgContext) remoteConfigPath() string {
	return "otterdog/" + o.Org.GitHubID + ".jsonnet"
}

// FetchOptions control fetch-config.
type FetchOptions struct {
	// PullRequest reads the declaration from the head of an open pull
	// request instead of the default branch.
	PullRequest int
	// Suffix is appended to the local file name before ".jsonnet".
	Suffix string
	// Force overwrites an existing local file.
	Force bool
}

// FetchConfig downloads the declaration from the organization's config
// repository into the local config directory.
func FetchConfig(ctx context.Context, o *OrgContext, opts FetchOptions) error {
	configRepo := o.Config.Defaults.GitHub.ConfigRepo
	ref := o.Config.Defaults.GitHub.DefaultBranch

	if opts.PullRequest > 0 {
		pr, err := o.Client.GetPullRequest(ctx, o.Org.GitHubID, configRepo, opts.PullRequest)
		if err != nil {
			return fmt.Errorf("failed to read pull request #%d: %w", opts.PullRequest, err)
		}
		ref = pr.GetHead().GetRef()
		logrus.Infof("fetching configuration from pull request #%d (ref %s)", opts.PullRequest, ref)
	}

	content, err := o.Client.GetContent(ctx, o.Org.GitHubID, configRepo, o.remoteConfigPath(), ref)
	if err != nil {
		return fmt.Errorf("failed to fetch %s from %s/%s: %w",
			o.remoteConfigPath(), o.Org.GitHubID, configRepo, err)
	}

	target := o.OrgConfigFile()
	if opts.Suffix != "" {
		target = strings.TrimSuffix(target, ".jsonnet") + opts.Suffix + ".jsonnet"
	}
	if !opts.Force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("file %s already exists, pass --force to overwrite", target)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "configuration of %s written to %s\n", o.Org.Name, target)
	return nil
}

// PushConfig uploads the local declaration to the organization's config
// repository.
func PushConfig(ctx context.Context, o *OrgContext, message string) error {
	local := o.OrgConfigFile()
	raw, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", local, err)
	}
	if message == "" {
		message = fmt.Sprintf("Update configuration of %s", o.Org.Name)
	}

	configRepo := o.Config.Defaults.GitHub.ConfigRepo
	branch := o.Config.Defaults.GitHub.DefaultBranch
	updated, err := o.Client.UpdateContent(ctx, o.Org.GitHubID, configRepo,
		o.remoteConfigPath(), string(raw), message, branch)
	if err != nil {
		return fmt.Errorf("failed to push configuration: %w", err)
	}
	if updated {
		fmt.Fprintf(o.Out, "configuration of %s pushed to %s/%s\n",
			o.Org.Name, o.Org.GitHubID, configRepo)
	} else {
		fmt.Fprintf(o.Out, "configuration of %s is already up to date\n", o.Org.Name)
	}
	return nil
}

// CanonicalDiff compares the local declaration text with its canonical
// rendering and prints the textual differences.
func CanonicalDiff(ctx context.Context, o *OrgContext) (bool, error) {
	org, unknown, err := o.LoadExpected(ctx)
	if err != nil {
		return false, err
	}
	if errs := o.validateExpected(org, unknown); errs > 0 {
		return false, fmt.Errorf("configuration of %s has %d validation error(s)", o.Org.Name, errs)
	}

	defaults, err := o.loadTemplateDefaults(ctx)
	if err != nil {
		logrus.Warnf("failed to evaluate template defaults: %v", err)
		defaults = nil
	}
	canonical := RenderOrg(org, o.Org.Name, defaults)

	raw, err := os.ReadFile(o.OrgConfigFile())
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", o.OrgConfigFile(), err)
	}

	diff := cmp.Diff(strings.Split(canonical, "\n"), strings.Split(string(raw), "\n"))
	if diff == "" {
		fmt.Fprintf(o.Out, "configuration of %s is in canonical form\n", o.Org.Name)
		return false, nil
	}
	fmt.Fprintf(o.Out, "configuration of %s differs from canonical form (-canonical +local):\n%s\n",
		o.Org.Name, diff)
	return true, nil
}
