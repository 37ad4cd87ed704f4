package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// ListOrgSecrets returns all organization Actions secrets together with
// the repository ids each `selected` secret is scoped to.
func (c *Client) ListOrgSecrets(ctx context.Context, org string) ([]*github.Secret, map[string][]int64, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var secrets []*github.Secret
	selected := map[string][]int64{}
	for {
		page, resp, err := c.rest.Actions.ListOrgSecrets(ctx, org, opts)
		if err != nil {
			return nil, nil, wrapErr(resp, err)
		}
		secrets = append(secrets, page.Secrets...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	for _, s := range secrets {
		if s.Visibility != "selected" {
			continue
		}
		ids, err := c.listSelectedReposForOrgSecret(ctx, org, s.Name)
		if err != nil {
			return nil, nil, err
		}
		selected[s.Name] = ids
	}
	return secrets, selected, nil
}

func (c *Client) listSelectedReposForOrgSecret(ctx context.Context, org, name string) ([]int64, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var ids []int64
	for {
		page, resp, err := c.rest.Actions.ListSelectedReposForOrgSecret(ctx, org, name, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		for _, r := range page.Repositories {
			ids = append(ids, r.GetID())
		}
		if resp.NextPage == 0 {
			return ids, nil
		}
		opts.Page = resp.NextPage
	}
}

// UpsertOrgSecret seals plaintext with the organization public key and
// PUTs the ciphertext. GitHub answers 201 on create and 204 on update;
// go-github treats both as success.
func (c *Client) UpsertOrgSecret(ctx context.Context, org, name, visibility string, selectedRepoIDs []int64, plaintext string) error {
	key, resp, err := c.rest.Actions.GetOrgPublicKey(ctx, org)
	if err != nil {
		return wrapErr(resp, err)
	}
	sealed, err := sealSecret(plaintext, key.GetKey())
	if err != nil {
		return err
	}
	secret := &github.EncryptedSecret{
		Name:                  name,
		KeyID:                 key.GetKeyID(),
		EncryptedValue:        sealed,
		Visibility:            visibility,
		SelectedRepositoryIDs: github.SelectedRepoIDs(selectedRepoIDs),
	}
	r, err := c.rest.Actions.CreateOrUpdateOrgSecret(ctx, org, secret)
	return wrapErr(r, err)
}

func (c *Client) DeleteOrgSecret(ctx context.Context, org, name string) error {
	resp, err := c.rest.Actions.DeleteOrgSecret(ctx, org, name)
	return wrapErr(resp, err)
}

// ListRepoSecrets returns all Actions secrets of a repository.
func (c *Client) ListRepoSecrets(ctx context.Context, org, repo string) ([]*github.Secret, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var secrets []*github.Secret
	for {
		page, resp, err := c.rest.Actions.ListRepoSecrets(ctx, org, repo, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		secrets = append(secrets, page.Secrets...)
		if resp.NextPage == 0 {
			return secrets, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) UpsertRepoSecret(ctx context.Context, org, repo, name, plaintext string) error {
	key, resp, err := c.rest.Actions.GetRepoPublicKey(ctx, org, repo)
	if err != nil {
		return wrapErr(resp, err)
	}
	sealed, err := sealSecret(plaintext, key.GetKey())
	if err != nil {
		return err
	}
	secret := &github.EncryptedSecret{
		Name:           name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	}
	r, err := c.rest.Actions.CreateOrUpdateRepoSecret(ctx, org, repo, secret)
	return wrapErr(r, err)
}

func (c *Client) DeleteRepoSecret(ctx context.Context, org, repo, name string) error {
	resp, err := c.rest.Actions.DeleteRepoSecret(ctx, org, repo, name)
	return wrapErr(resp, err)
}

// ListEnvSecrets returns all Actions secrets of a repository environment.
func (c *Client) ListEnvSecrets(ctx context.Context, repoID int64, env string) ([]*github.Secret, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}
	var secrets []*github.Secret
	for {
		page, resp, err := c.rest.Actions.ListEnvSecrets(ctx, int(repoID), env, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		secrets = append(secrets, page.Secrets...)
		if resp.NextPage == 0 {
			return secrets, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) UpsertEnvSecret(ctx context.Context, repoID int64, env, name, plaintext string) error {
	key, resp, err := c.rest.Actions.GetEnvPublicKey(ctx, int(repoID), env)
	if err != nil {
		return wrapErr(resp, err)
	}
	sealed, err := sealSecret(plaintext, key.GetKey())
	if err != nil {
		return err
	}
	secret := &github.EncryptedSecret{
		Name:           name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	}
	r, err := c.rest.Actions.CreateOrUpdateEnvSecret(ctx, int(repoID), env, secret)
	return wrapErr(r, err)
}

func (c *Client) DeleteEnvSecret(ctx context.Context, repoID int64, env, name string) error {
	resp, err := c.rest.Actions.DeleteEnvSecret(ctx, int(repoID), env, name)
	return wrapErr(resp, err)
}
