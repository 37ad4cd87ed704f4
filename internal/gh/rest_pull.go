package gh

import (
	"context"

	"github.com/google/go-github/v74/github"
)

// CreatePullRequest opens a pull request and returns its number.
func (c *Client) CreatePullRequest(ctx context.Context, org, repo, title, head, base string) (int, error) {
	pr := &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	}
	created, resp, err := c.rest.PullRequests.Create(ctx, org, repo, pr)
	if err != nil {
		return 0, wrapErr(resp, err)
	}
	return created.GetNumber(), nil
}

// GetPullRequest reads a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, org, repo string, number int) (*github.PullRequest, error) {
	pr, resp, err := c.rest.PullRequests.Get(ctx, org, repo, number)
	return pr, wrapErr(resp, err)
}

// ListOpenPullRequests lists all open pull requests of a repository.
func (c *Client) ListOpenPullRequests(ctx context.Context, org, repo string) ([]*github.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var all []*github.PullRequest
	for {
		prs, resp, err := c.rest.PullRequests.List(ctx, org, repo, opts)
		if err != nil {
			return nil, wrapErr(resp, err)
		}
		all = append(all, prs...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ApprovePullRequest submits an approving review.
func (c *Client) ApprovePullRequest(ctx context.Context, org, repo string, number int, body string) error {
	review := &github.PullRequestReviewRequest{
		Event: github.Ptr("APPROVE"),
		Body:  github.Ptr(body),
	}
	_, resp, err := c.rest.PullRequests.CreateReview(ctx, org, repo, number, review)
	return wrapErr(resp, err)
}

// MergePullRequest merges a pull request using the squash method.
func (c *Client) MergePullRequest(ctx context.Context, org, repo string, number int, message string) error {
	opts := &github.PullRequestOptions{MergeMethod: "squash"}
	_, resp, err := c.rest.PullRequests.Merge(ctx, org, repo, number, message, opts)
	return wrapErr(resp, err)
}

// CreateCommitStatus attaches a status to a commit.
func (c *Client) CreateCommitStatus(ctx context.Context, org, repo, sha, state, context_, description string) error {
	status := &github.RepoStatus{
		State:       github.Ptr(state),
		Context:     github.Ptr(context_),
		Description: github.Ptr(description),
	}
	_, resp, err := c.rest.Repositories.CreateStatus(ctx, org, repo, sha, status)
	return wrapErr(resp, err)
}
