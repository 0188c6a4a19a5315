package pipeline

import (
	"context"
	"errors"
	"strings"

	"jobscout/internal/logger"
	"jobscout/internal/platform/eino"
	"jobscout/internal/utils/llmjson"
	"jobscout/prompts"
)

const (
	defaultCompanyCap  = 15
	companySuggestions = 10
	roleSuggestions    = 3
)

// Expander widens the seed company list and the role list with model
// suggestions. Both degrade to their inputs when the model misbehaves.
type Expander struct {
	llm     Completer
	prompts *prompts.Set
	limit   int
	log     *logger.Logger
}

func NewExpander(llm Completer, set *prompts.Set, companyCap int) *Expander {
	if companyCap <= 0 {
		companyCap = defaultCompanyCap
	}
	return &Expander{llm: llm, prompts: set, limit: companyCap, log: logger.New("Expander")}
}

// Companies returns seed ∪ suggestions: seeds first, suggestions in model
// order, deduplicated by normalized name. The cap bounds suggestions only;
// every seed survives.
func (e *Expander) Companies(ctx context.Context, seed, roles []string) Outcome[[]string] {
	base := mergeUnique(0, seed)

	system, user, err := prompts.Render(ctx, e.prompts.CompanyExpansion, map[string]any{
		"companies": strings.Join(base, ", "),
		"roles":     strings.Join(roles, ", "),
		"count":     companySuggestions,
	})
	if err != nil {
		return fallback(base, err)
	}
	raw, err := e.llm.Complete(ctx, system, user, eino.Options{Temperature: 0.7, MaxTokens: 500})
	if err != nil {
		e.log.LogWarnf("company expansion failed, using seed list: %v", err)
		return fallback(base, &ServiceError{Message: "company expansion", Cause: err})
	}

	var payload struct {
		Companies []string `json:"companies"`
	}
	err = llmjson.ExtractWhere(raw, &payload, func() bool { return len(payload.Companies) > 0 })
	if err != nil {
		e.log.LogWarnf("company expansion response unusable, using seed list: %v", err)
		return fallback(base, &ParseError{Stage: "company expansion", Cause: err})
	}
	out := mergeUnique(max(e.limit, len(base)), base, payload.Companies)
	e.log.LogInfof("expanded %d seed companies to %d", len(base), len(out))
	return ok(out)
}

// Roles returns the original roles followed by up to three suggested titles.
// The originals are always present.
func (e *Expander) Roles(ctx context.Context, roles []string) Outcome[[]string] {
	base := mergeUnique(0, roles)
	if len(base) == 0 {
		return fallback(base, errors.New("no roles to expand"))
	}

	system, user, err := prompts.Render(ctx, e.prompts.RoleExpansion, map[string]any{
		"roles": strings.Join(base, ", "),
		"count": roleSuggestions,
	})
	if err != nil {
		return fallback(base, err)
	}
	raw, err := e.llm.Complete(ctx, system, user, eino.Options{Temperature: 0.3, MaxTokens: 200})
	if err != nil {
		e.log.LogWarnf("role expansion failed: %v", err)
		return fallback(base, &ServiceError{Message: "role expansion", Cause: err})
	}

	var payload struct {
		ExpandedRoles []string `json:"expandedRoles"`
	}
	err = llmjson.ExtractWhere(raw, &payload, func() bool { return len(payload.ExpandedRoles) > 0 })
	if err != nil {
		return fallback(base, &ParseError{Stage: "role expansion", Cause: err})
	}
	if len(payload.ExpandedRoles) > roleSuggestions {
		payload.ExpandedRoles = payload.ExpandedRoles[:roleSuggestions]
	}
	return ok(mergeUnique(0, base, payload.ExpandedRoles))
}

// mergeUnique concatenates lists, trimming entries and dropping blanks and
// duplicates by normalized name. limit <= 0 means no cap.
func mergeUnique(limit int, lists ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, item := range list {
			item = strings.Join(strings.Fields(item), " ")
			key := normalizeName(item)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			if limit > 0 && len(out) >= limit {
				return out
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// normalizeName lowercases and drops all whitespace.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
