package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v74/github"
)

// GetContent reads a file from a repository at the given ref ("" means the
// default branch) and returns its decoded content.
func (c *Client) GetContent(ctx context.Context, org, repo, path, ref string) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, resp, err := c.rest.Repositories.GetContents(ctx, org, repo, path, opts)
	if err != nil {
		return "", wrapErr(resp, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory, not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", err
	}
	return content, nil
}

// UpdateContent writes a file to a repository, creating it when absent.
// It returns true when a commit was made, false when the content was
// already up to date.
func (c *Client) UpdateContent(ctx context.Context, org, repo, path, content, message, branch string) (bool, error) {
	opts := &github.RepositoryContentGetOptions{Ref: branch}
	existing, _, _, err := c.rest.Repositories.GetContents(ctx, org, repo, path, opts)
	var sha *string
	if err == nil && existing != nil {
		current, err := existing.GetContent()
		if err == nil && current == content {
			return false, nil
		}
		sha = existing.SHA
	} else if err != nil && !IsNotFound(wrapErr(nil, err)) && !strings.Contains(err.Error(), "404") {
		return false, err
	}

	if message == "" {
		message = fmt.Sprintf("Updating file %s", path)
	}
	fileOpts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		SHA:     sha,
	}
	if branch != "" {
		fileOpts.Branch = github.Ptr(branch)
	}
	if sha == nil {
		_, resp, err := c.rest.Repositories.CreateFile(ctx, org, repo, path, fileOpts)
		return err == nil, wrapErr(resp, err)
	}
	_, resp, err := c.rest.Repositories.UpdateFile(ctx, org, repo, path, fileOpts)
	return err == nil, wrapErr(resp, err)
}

// DeleteContent removes a file from a repository.
func (c *Client) DeleteContent(ctx context.Context, org, repo, path, message string) error {
	existing, _, resp, err := c.rest.Repositories.GetContents(ctx, org, repo, path, nil)
	if err != nil {
		return wrapErr(resp, err)
	}
	if message == "" {
		message = fmt.Sprintf("Deleting file %s", path)
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		SHA:     existing.SHA,
	}
	_, resp, err = c.rest.Repositories.DeleteFile(ctx, org, repo, path, opts)
	return wrapErr(resp, err)
}

// CreateBranch creates a branch pointing at the head of the default
// branch. Creating an already existing branch is not an error.
func (c *Client) CreateBranch(ctx context.Context, org, repo, branch string) error {
	r, err := c.GetRepository(ctx, org, repo)
	if err != nil {
		return err
	}
	base, resp, err := c.rest.Git.GetRef(ctx, org, repo, "refs/heads/"+r.GetDefaultBranch())
	if err != nil {
		return wrapErr(resp, err)
	}
	ref := &github.Reference{
		Ref:    github.Ptr("refs/heads/" + branch),
		Object: base.Object,
	}
	_, resp, err = c.rest.Git.CreateRef(ctx, org, repo, ref)
	if err != nil && strings.Contains(err.Error(), "Reference already exists") {
		return nil
	}
	return wrapErr(resp, err)
}

// DeleteBranch removes a branch ref.
func (c *Client) DeleteBranch(ctx context.Context, org, repo, branch string) error {
	resp, err := c.rest.Git.DeleteRef(ctx, org, repo, "refs/heads/"+branch)
	return wrapErr(resp, err)
}

// SyncFromTemplate walks the repository's template tree and updates every
// target file whose content drifted from the template. Returns the paths
// that were updated.
func (c *Client) SyncFromTemplate(ctx context.Context, org, repo string) ([]string, error) {
	r, err := c.GetRepository(ctx, org, repo)
	if err != nil {
		return nil, err
	}
	template := r.GetTemplateRepository()
	if template == nil {
		return nil, fmt.Errorf("repository %s/%s has no template repository", org, repo)
	}
	tplOwner := template.GetOwner().GetLogin()
	tplRepo := template.GetName()

	tree, resp, err := c.rest.Git.GetTree(ctx, tplOwner, tplRepo, template.GetDefaultBranch(), true)
	if err != nil {
		return nil, wrapErr(resp, err)
	}

	var updated []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		content, err := c.GetContent(ctx, tplOwner, tplRepo, path, "")
		if err != nil {
			return updated, err
		}
		changed, err := c.UpdateContent(ctx, org, repo, path, content,
			fmt.Sprintf("Syncing %s from template %s/%s", path, tplOwner, tplRepo), "")
		if err != nil {
			return updated, err
		}
		if changed {
			updated = append(updated, path)
		}
	}
	return updated, nil
}
