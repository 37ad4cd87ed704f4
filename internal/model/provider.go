package model

import (
	"context"

	"github.com/google/go-github/v74/github"
	"github.com/shurcooL/githubv4"

	"github.com/eclipse-csi/otterdog-sub000/internal/gh"
)

// Provider is the subset of the GitHub facade the model layer reads live
// state from and applies patches through. *gh.Client satisfies it; tests
// substitute fakes.
type Provider interface {
	// Organization level reads.
	GetOrganization(ctx context.Context, org string) (*github.Organization, error)
	GetOrgWorkflowSettings(ctx context.Context, org string) (*gh.WorkflowSettings, error)
	ListOrgWebhooks(ctx context.Context, org string) ([]*github.Hook, error)
	ListOrgSecrets(ctx context.Context, org string) ([]*github.Secret, map[string][]int64, error)
	ListOrgVariables(ctx context.Context, org string) ([]*github.ActionsVariable, map[string][]int64, error)
	ListCustomProperties(ctx context.Context, org string) ([]*github.CustomProperty, error)
	ListOrgRoles(ctx context.Context, org string) ([]*github.CustomOrgRoles, error)
	ListOrgRulesets(ctx context.Context, org string) ([]*github.RepositoryRuleset, error)
	ListTeams(ctx context.Context, org string) ([]*github.Team, error)
	ListTeamMembers(ctx context.Context, org, slug string) (members, maintainers []string, err error)
	ListRepositories(ctx context.Context, org string) ([]*github.Repository, error)
	GetRepository(ctx context.Context, org, repo string) (*github.Repository, error)
	GetPages(ctx context.Context, org, repo string) (*github.Pages, error)

	// Repository level reads.
	GetRepoWorkflowSettings(ctx context.Context, org, repo string) (*gh.WorkflowSettings, error)
	ListBranchProtectionRules(ctx context.Context, org, repo string) ([]*gh.BranchProtectionRule, error)
	ListRepoRulesets(ctx context.Context, org, repo string) ([]*github.RepositoryRuleset, error)
	ListRepoWebhooks(ctx context.Context, org, repo string) ([]*github.Hook, error)
	ListRepoSecrets(ctx context.Context, org, repo string) ([]*github.Secret, error)
	ListRepoVariables(ctx context.Context, org, repo string) ([]*github.ActionsVariable, error)
	ListEnvironments(ctx context.Context, org, repo string) ([]*github.Environment, map[string][]string, error)
	ListEnvSecrets(ctx context.Context, repoID int64, env string) ([]*github.Secret, error)
	ListEnvVariables(ctx context.Context, org, repo, env string) ([]*github.ActionsVariable, error)
	ListTeamPermissions(ctx context.Context, org, repo string) ([]*github.Team, error)
	GetVulnerabilityAlertsEnabled(ctx context.Context, org, repo string) (bool, error)

	GetContent(ctx context.Context, org, repo, path, ref string) (string, error)
	UpdateContent(ctx context.Context, org, repo, path, content, message, branch string) (bool, error)

	ListAppInstallations(ctx context.Context, org string) ([]*github.Installation, error)
	GetApp(ctx context.Context, slug string) (*github.App, error)

	// UI-only settings.
	GetWebSettings(ctx context.Context, org string, keys []string) (map[string]any, error)
	UpdateWebSettings(ctx context.Context, org string, settings map[string]any) error
	HasWeb() bool

	// Actor resolution.
	ResolveActorNodeIDs(ctx context.Context, org string, tokens []string) []string
	ResolveBypassActors(ctx context.Context, org string, tokens []string) []*github.BypassActor
	BypassActorTokens(ctx context.Context, org string, actors []*github.BypassActor) []string
	ResolveEnvReviewers(ctx context.Context, org string, tokens []string) []*github.EnvReviewers
	RepositoryNodeID(ctx context.Context, org, repo string) (string, error)
	AppNodeID(ctx context.Context, slug string) (string, error)

	// Organization level writes.
	UpdateOrganizationSettings(ctx context.Context, org string, settings *github.Organization) error
	UpdateOrgWorkflowSettings(ctx context.Context, org string, ws *gh.WorkflowSettings) error
	CreateOrgWebhook(ctx context.Context, org string, hook *github.Hook) error
	UpdateOrgWebhook(ctx context.Context, org string, id int64, hook *github.Hook) error
	DeleteOrgWebhook(ctx context.Context, org string, id int64) error
	UpsertOrgSecret(ctx context.Context, org, name, visibility string, selectedRepoIDs []int64, plaintext string) error
	DeleteOrgSecret(ctx context.Context, org, name string) error
	CreateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error
	UpdateOrgVariable(ctx context.Context, org string, variable *github.ActionsVariable) error
	DeleteOrgVariable(ctx context.Context, org, name string) error
	UpsertCustomProperty(ctx context.Context, org, name string, property *github.CustomProperty) error
	DeleteCustomProperty(ctx context.Context, org, name string) error
	CreateOrgRole(ctx context.Context, org string, opts *github.CreateOrUpdateOrgRoleOptions) (int64, error)
	UpdateOrgRole(ctx context.Context, org string, roleID int64, opts *github.CreateOrUpdateOrgRoleOptions) error
	DeleteOrgRole(ctx context.Context, org string, roleID int64) error
	FindOrgRoleID(ctx context.Context, org, name string) (int64, error)
	CreateOrgRuleset(ctx context.Context, org string, ruleset github.RepositoryRuleset) error
	UpdateOrgRuleset(ctx context.Context, org string, id int64, ruleset github.RepositoryRuleset) error
	DeleteOrgRuleset(ctx context.Context, org string, id int64) error
	CreateTeam(ctx context.Context, org string, team github.NewTeam) (string, error)
	UpdateTeam(ctx context.Context, org, slug string, team github.NewTeam) error
	DeleteTeam(ctx context.Context, org, slug string) error
	SyncTeamMembers(ctx context.Context, org, slug string, members, maintainers []string) error

	// Repository level writes.
	CreateRepository(ctx context.Context, org string, repo *github.Repository, templateRepository string) (*github.Repository, error)
	UpdateRepository(ctx context.Context, org, name string, repo *github.Repository) error
	DeleteRepository(ctx context.Context, org, name string) error
	ReplaceTopics(ctx context.Context, org, repo string, topics []string) error
	UpdatePages(ctx context.Context, org, repo, buildType, sourceBranch, sourcePath string) error
	SetVulnerabilityAlerts(ctx context.Context, org, repo string, enabled bool) error
	SetAutomatedSecurityFixes(ctx context.Context, org, repo string, enabled bool) error
	UpdateRepoWorkflowSettings(ctx context.Context, org, repo string, ws *gh.WorkflowSettings) error
	CreateBranchProtectionRule(ctx context.Context, input githubv4.CreateBranchProtectionRuleInput) error
	UpdateBranchProtectionRule(ctx context.Context, input githubv4.UpdateBranchProtectionRuleInput) error
	DeleteBranchProtectionRule(ctx context.Context, ruleID string) error
	CreateRepoRuleset(ctx context.Context, org, repo string, ruleset github.RepositoryRuleset) error
	UpdateRepoRuleset(ctx context.Context, org, repo string, id int64, ruleset github.RepositoryRuleset) error
	DeleteRepoRuleset(ctx context.Context, org, repo string, id int64) error
	CreateRepoWebhook(ctx context.Context, org, repo string, hook *github.Hook) error
	UpdateRepoWebhook(ctx context.Context, org, repo string, id int64, hook *github.Hook) error
	DeleteRepoWebhook(ctx context.Context, org, repo string, id int64) error
	UpsertRepoSecret(ctx context.Context, org, repo, name, plaintext string) error
	DeleteRepoSecret(ctx context.Context, org, repo, name string) error
	CreateRepoVariable(ctx context.Context, org, repo string, variable *github.ActionsVariable) error
	UpdateRepoVariable(ctx context.Context, org, repo string, variable *github.ActionsVariable) error
	DeleteRepoVariable(ctx context.Context, org, repo, name string) error
	UpsertEnvironment(ctx context.Context, org, repo, name string, env *github.CreateUpdateEnvironment, branchPolicies []string) error
	DeleteEnvironment(ctx context.Context, org, repo, name string) error
	UpsertEnvSecret(ctx context.Context, repoID int64, env, name, plaintext string) error
	DeleteEnvSecret(ctx context.Context, repoID int64, env, name string) error
	CreateEnvVariable(ctx context.Context, org, repo, env string, variable *github.ActionsVariable) error
	UpdateEnvVariable(ctx context.Context, org, repo, env string, variable *github.ActionsVariable) error
	DeleteEnvVariable(ctx context.Context, org, repo, env, name string) error
	SetTeamPermission(ctx context.Context, org, slug, repo, permission string) error
	RemoveTeamPermission(ctx context.Context, org, slug, repo string) error
}
