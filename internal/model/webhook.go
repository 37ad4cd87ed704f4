package model

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
)

// OrganizationWebhook is an org-level webhook, keyed by its url. The
// aliases list records previous urls so a moved hook is recognized as a
// rename rather than a delete plus create.
type OrganizationWebhook struct {
	ID          Value[int64]    `model:"id,external"`
	URL         Value[string]   `model:"url,key"`
	Aliases     Value[[]string] `model:"aliases,modelonly"`
	Active      Value[bool]     `model:"active"`
	Events      Value[[]string] `model:"events,set"`
	ContentType Value[string]   `model:"content_type"`
	InsecureSSL Value[string]   `model:"insecure_ssl"`
	Secret      Value[string]   `model:"secret,secret"`
}

// RepositoryWebhook is the per-repository twin.
type RepositoryWebhook struct {
	ID          Value[int64]    `model:"id,external"`
	URL         Value[string]   `model:"url,key"`
	Aliases     Value[[]string] `model:"aliases,modelonly"`
	Active      Value[bool]     `model:"active"`
	Events      Value[[]string] `model:"events,set"`
	ContentType Value[string]   `model:"content_type"`
	InsecureSSL Value[string]   `model:"insecure_ssl"`
	Secret      Value[string]   `model:"secret,secret"`
}

// The secret never comes back from the provider, so it is excluded from
// the generic field diff and handled explicitly during patch generation.
func (w *OrganizationWebhook) IncludeForDiff(field string) bool { return field != "secret" }
func (w *RepositoryWebhook) IncludeForDiff(field string) bool   { return field != "secret" }

// AllURLs returns the primary url plus aliases, for rename matching.
func (w *OrganizationWebhook) AllURLs() []string {
	return append([]string{w.URL.Get()}, w.Aliases.OrElse(nil)...)
}

func (w *RepositoryWebhook) AllURLs() []string {
	return append([]string{w.URL.Get()}, w.Aliases.OrElse(nil)...)
}

func webhookFromHook(h *github.Hook) (id Value[int64], url, contentType, insecureSSL Value[string], active Value[bool], events Value[[]string]) {
	cfg := h.GetConfig()
	id = Set(h.GetID())
	url = Set(cfg.GetURL())
	contentType = Set(cfg.GetContentType())
	insecureSSL = Set(cfg.GetInsecureSSL())
	active = Set(h.GetActive())
	events = Set(append([]string(nil), h.Events...))
	return
}

// NewOrgWebhookFromProvider maps a provider hook into the model form.
func NewOrgWebhookFromProvider(h *github.Hook) *OrganizationWebhook {
	w := &OrganizationWebhook{}
	w.ID, w.URL, w.ContentType, w.InsecureSSL, w.Active, w.Events = webhookFromHook(h)
	return w
}

func NewRepoWebhookFromProvider(h *github.Hook) *RepositoryWebhook {
	w := &RepositoryWebhook{}
	w.ID, w.URL, w.ContentType, w.InsecureSSL, w.Active, w.Events = webhookFromHook(h)
	return w
}

// hookToProvider builds the full write body for a create or a forced
// rewrite. The secret must already be resolved.
func hookToProvider(url Value[string], active Value[bool], events Value[[]string], contentType, insecureSSL, secret Value[string]) *github.Hook {
	cfg := &github.HookConfig{URL: github.Ptr(url.Get())}
	if contentType.IsSet() {
		cfg.ContentType = github.Ptr(contentType.Get())
	}
	if insecureSSL.IsSet() {
		cfg.InsecureSSL = github.Ptr(insecureSSL.Get())
	}
	if secret.IsSet() && secret.Get() != "" {
		cfg.Secret = github.Ptr(secret.Get())
	}
	hook := &github.Hook{Config: cfg}
	if active.IsSet() {
		hook.Active = github.Ptr(active.Get())
	}
	if events.IsSet() {
		hook.Events = events.Get()
	}
	return hook
}

// webhookSecretChange implements the placeholder rules shared by both
// webhook scopes: a dummy secret suppresses the whole child, a declared
// real secret that the provider cannot echo back is always written.
func webhookSecretChange(expected Value[string], pctx *PatchContext, key string) (skip bool, changes map[string]Change, forced bool) {
	if expected.IsSet() && IsDummySecret(expected.Get()) {
		return true, nil, false
	}
	if pctx.UpdateWebhooks && expected.IsSet() && expected.Get() != "" && pctx.filterMatches(key) {
		return false, nil, true
	}
	if expected.IsSet() && expected.Get() != "" {
		changes = map[string]Change{"secret": {From: nil, To: expected.Get()}}
	}
	return false, changes, false
}

func (w *OrganizationWebhook) generateLivePatch(current *OrganizationWebhook, orgID string, pctx *PatchContext, sink *patchSink) {
	skip, secretChanges, forced := webhookSecretChange(w.Secret, pctx, w.URL.Get())
	if skip {
		return
	}
	changes := Difference(w, current)
	if forced {
		changes = FullChanges(w)
	} else {
		for f, c := range secretChanges {
			changes[f] = c
		}
	}
	if len(changes) == 0 {
		return
	}
	expected := w
	id := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("org_webhook[%s]", w.URL.Get()),
		Changes:  changes,
		Forced:   forced,
		Apply: func(ctx context.Context, provider Provider) error {
			secret, err := pctx.resolveSecret(ctx, expected.Secret.OrElse(""))
			if err != nil {
				return err
			}
			hook := hookToProvider(expected.URL, expected.Active, expected.Events,
				expected.ContentType, expected.InsecureSSL, Set(secret))
			return provider.UpdateOrgWebhook(ctx, orgID, id, hook)
		},
	})
}

func (w *OrganizationWebhook) addPatch(orgID string, pctx *PatchContext, sink *patchSink) {
	if w.Secret.IsSet() && IsDummySecret(w.Secret.Get()) {
		return
	}
	expected := w
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("org_webhook[%s]", w.URL.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			secret, err := pctx.resolveSecret(ctx, expected.Secret.OrElse(""))
			if err != nil {
				return err
			}
			hook := hookToProvider(expected.URL, expected.Active, expected.Events,
				expected.ContentType, expected.InsecureSSL, Set(secret))
			return provider.CreateOrgWebhook(ctx, orgID, hook)
		},
	})
}

func (w *OrganizationWebhook) removePatch(orgID string, sink *patchSink) {
	id := w.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("org_webhook[%s]", w.URL.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteOrgWebhook(ctx, orgID, id)
		},
	})
}

func (w *RepositoryWebhook) generateLivePatch(current *RepositoryWebhook, orgID, repoName string, pctx *PatchContext, sink *patchSink) {
	skip, secretChanges, forced := webhookSecretChange(w.Secret, pctx, w.URL.Get())
	if skip {
		return
	}
	changes := Difference(w, current)
	if forced {
		changes = FullChanges(w)
	} else {
		for f, c := range secretChanges {
			changes[f] = c
		}
	}
	if len(changes) == 0 {
		return
	}
	expected := w
	id := current.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchChange,
		Resource: fmt.Sprintf("repo[%s]/webhook[%s]", repoName, w.URL.Get()),
		Changes:  changes,
		Forced:   forced,
		Apply: func(ctx context.Context, provider Provider) error {
			secret, err := pctx.resolveSecret(ctx, expected.Secret.OrElse(""))
			if err != nil {
				return err
			}
			hook := hookToProvider(expected.URL, expected.Active, expected.Events,
				expected.ContentType, expected.InsecureSSL, Set(secret))
			return provider.UpdateRepoWebhook(ctx, orgID, repoName, id, hook)
		},
	})
}

func (w *RepositoryWebhook) addPatch(orgID, repoName string, pctx *PatchContext, sink *patchSink) {
	if w.Secret.IsSet() && IsDummySecret(w.Secret.Get()) {
		return
	}
	expected := w
	sink.emit(&LivePatch{
		Kind:     PatchAdd,
		Resource: fmt.Sprintf("repo[%s]/webhook[%s]", repoName, w.URL.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			secret, err := pctx.resolveSecret(ctx, expected.Secret.OrElse(""))
			if err != nil {
				return err
			}
			hook := hookToProvider(expected.URL, expected.Active, expected.Events,
				expected.ContentType, expected.InsecureSSL, Set(secret))
			return provider.CreateRepoWebhook(ctx, orgID, repoName, hook)
		},
	})
}

func (w *RepositoryWebhook) removePatch(orgID, repoName string, sink *patchSink) {
	id := w.ID.Get()
	sink.emit(&LivePatch{
		Kind:     PatchRemove,
		Resource: fmt.Sprintf("repo[%s]/webhook[%s]", repoName, w.URL.Get()),
		Apply: func(ctx context.Context, provider Provider) error {
			return provider.DeleteRepoWebhook(ctx, orgID, repoName, id)
		},
	})
}

func validateWebhook(vc *ValidationContext, where string, contentType, insecureSSL, secret Value[string], events Value[[]string]) {
	validEnum(vc, where, "content_type", contentType, "form", "json")
	validEnum(vc, where, "insecure_ssl", insecureSSL, "0", "1")
	if events.IsSet() && len(events.Get()) == 0 {
		vc.Warnf("%s: no events configured, the hook will never fire", where)
	}
	if secret.IsSet() && secret.Get() == "" {
		vc.Warnf("%s: empty secret configured, consider removing the field", where)
	}
}

// Validate checks a single org webhook.
func (w *OrganizationWebhook) Validate(vc *ValidationContext) {
	validateWebhook(vc, fmt.Sprintf("org_webhook[%s]", w.URL.Get()),
		w.ContentType, w.InsecureSSL, w.Secret, w.Events)
}

func (w *RepositoryWebhook) Validate(vc *ValidationContext, repoName string) {
	validateWebhook(vc, fmt.Sprintf("repo[%s]/webhook[%s]", repoName, w.URL.Get()),
		w.ContentType, w.InsecureSSL, w.Secret, w.Events)
}
