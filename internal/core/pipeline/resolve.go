package pipeline

import (
	"context"
	"net/url"
	"strings"
	"time"

	"jobscout/internal/logger"
	"jobscout/internal/platform/eino"
	"jobscout/internal/utils/llmjson"
	"jobscout/prompts"
)

// CareersCache remembers resolved careers pages between runs. Get reports
// false on a miss or any backend failure.
type CareersCache interface {
	GetCareers(ctx context.Context, company string) (CompanyTarget, bool)
	SetCareers(ctx context.Context, target CompanyTarget, ttl time.Duration)
}

const careersCacheTTL = 24 * time.Hour

// Resolver maps company names to careers pages.
type Resolver struct {
	llm     Completer
	prompts *prompts.Set
	cache   CareersCache
	log     *logger.Logger
}

func NewResolver(llm Completer, set *prompts.Set) *Resolver {
	return &Resolver{llm: llm, prompts: set, log: logger.New("Resolver")}
}

// WithCache attaches a careers cache. Only model answers are cached.
func (r *Resolver) WithCache(c CareersCache) *Resolver {
	r.cache = c
	return r
}

// ResolveAll resolves every company in order. Each element is either the
// model's answer or the slug fallback; the output never shrinks.
func (r *Resolver) ResolveAll(ctx context.Context, companies []string) []Outcome[CompanyTarget] {
	out := make([]Outcome[CompanyTarget], 0, len(companies))
	for _, name := range companies {
		out = append(out, r.Resolve(ctx, name))
	}
	return out
}

func (r *Resolver) Resolve(ctx context.Context, company string) Outcome[CompanyTarget] {
	if r.cache != nil {
		if t, hit := r.cache.GetCareers(ctx, company); hit && validCareersURL(t.CareersURL) {
			t.Name = company
			return ok(t)
		}
	}

	system, user, err := prompts.Render(ctx, r.prompts.CareersURL, map[string]any{"company": company})
	if err != nil {
		return fallback(FallbackTarget(company), err)
	}
	raw, err := r.llm.Complete(ctx, system, user, eino.Options{Temperature: 0.3, MaxTokens: 150})
	if err != nil {
		r.log.LogWarnf("careers lookup for %s failed, guessing: %v", company, err)
		return fallback(FallbackTarget(company), &ServiceError{Message: "careers lookup", Cause: err})
	}

	var payload struct {
		CareersURL string `json:"careersUrl"`
		Confidence string `json:"confidence"`
	}
	err = llmjson.ExtractWhere(raw, &payload, func() bool { return strings.TrimSpace(payload.CareersURL) != "" })
	if err != nil {
		return fallback(FallbackTarget(company), &ParseError{Stage: "careers lookup", Cause: err})
	}
	link := strings.TrimSpace(payload.CareersURL)
	if !validCareersURL(link) {
		return fallback(FallbackTarget(company), &ParseError{Stage: "careers lookup", Message: "careersUrl is not an absolute http(s) URL"})
	}

	t := CompanyTarget{Name: company, CareersURL: link, Confidence: parseConfidence(payload.Confidence)}
	if r.cache != nil {
		r.cache.SetCareers(ctx, t, careersCacheTTL)
	}
	return ok(t)
}

// FallbackTarget guesses https://<slug>.com/careers with low confidence.
func FallbackTarget(company string) CompanyTarget {
	return CompanyTarget{
		Name:       company,
		CareersURL: "https://" + Slug(company) + ".com/careers",
		Confidence: ConfidenceLow,
	}
}

// Slug lowercases name and keeps only ASCII letters, digits and hyphens.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "company"
	}
	return s
}

func parseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func validCareersURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
