package match

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is the declarative rule set shared by the link classifier and the
// match scorer. Terms are compared case-insensitively.
type Policy struct {
	// Link classification
	ExcludeURLTerms  []string `yaml:"exclude_url_terms"`
	ExcludeTextTerms []string `yaml:"exclude_text_terms"`
	JobPathSegments  []string `yaml:"job_path_segments"`
	UILabels         []string `yaml:"ui_labels"`
	TitleMinLen      int      `yaml:"title_min_len"`
	TitleMaxLen      int      `yaml:"title_max_len"`
	CandidateCap     int      `yaml:"candidate_cap"`

	// Selectors tried, in order, when narrowing a careers page by role.
	SearchBoxSelectors []string `yaml:"search_box_selectors"`

	// Scoring
	NegativeTerms      []string `yaml:"negative_terms"`
	MinBodyRoleHits    int      `yaml:"min_body_role_hits"`
	MandatorySeniority bool     `yaml:"mandatory_seniority"`
	KnownCities        []string `yaml:"known_cities"`
}

// DefaultPolicy returns the built-in rule set.
func DefaultPolicy() Policy {
	return Policy{
		ExcludeURLTerms: []string{
			"blog", "/news/", "/press/", "/about/", "/about-us/", "/contact/", "/team/",
			"/our-team/", "meet-", "/privacy", "/cookie", "/terms", "/legal/", "/login",
			"/signin", "/sign-in",
			"linkedin.com", "facebook.com", "twitter.com", "//x.com", "instagram.com",
			"youtube.com", "tiktok.com", "glassdoor.", "mailto:", "tel:",
		},
		ExcludeTextTerms: []string{
			"blog", "news", "press release", "about us", "contact us", "meet the team",
			"meet our", "cookie", "privacy", "terms of", "sign in", "log in", "login",
			"skip to", "back to top",
		},
		JobPathSegments: []string{
			"/job/", "/jobs/", "/role/", "/roles/", "/position/", "/positions/",
			"/opening/", "/openings/", "/vacancy/", "/vacancies/", "/listing/", "/listings/",
			"/career/", "/careers/",
		},
		UILabels: []string{
			"view all jobs", "view all openings", "see all jobs", "see all", "apply now",
			"learn more", "read more", "show more", "load more", "search jobs",
			"open positions", "job alerts", "privacy policy",
		},
		TitleMinLen:  10,
		TitleMaxLen:  200,
		CandidateCap: 5,
		SearchBoxSelectors: []string{
			`input[type="search"]`,
			`input[name*="search" i]`,
			`input[placeholder*="search" i]`,
			`input[aria-label*="search" i]`,
		},
		NegativeTerms: []string{
			"story", "stories", "blog", "interview", "day in the life", "day-in-the-life",
			"meet the team", "meet-the-team", "meet our", "meet-our", "life at", "life-at",
		},
		MinBodyRoleHits:    2,
		MandatorySeniority: false,
		KnownCities: []string{
			"London", "Paris", "New York", "Berlin", "Amsterdam", "Dublin", "Madrid",
			"Barcelona", "Lisbon", "Munich", "Zurich", "Stockholm", "Toronto",
			"San Francisco", "Singapore", "Remote",
		},
	}
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return p.normalized(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse policy %s: %w", path, err)
	}
	return p.normalized(), nil
}

// WithCandidateCap returns a copy of p with the crawl cap replaced when n > 0.
func (p Policy) WithCandidateCap(n int) Policy {
	if n > 0 {
		p.CandidateCap = n
	}
	return p
}

// normalized fills zero limits with defaults.
func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.TitleMinLen <= 0 {
		p.TitleMinLen = def.TitleMinLen
	}
	if p.TitleMaxLen < p.TitleMinLen {
		p.TitleMaxLen = def.TitleMaxLen
	}
	if p.CandidateCap <= 0 {
		p.CandidateCap = def.CandidateCap
	}
	if p.MinBodyRoleHits <= 0 {
		p.MinBodyRoleHits = def.MinBodyRoleHits
	}
	return p
}

func containsAny(haystack string, terms []string) (string, bool) {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(haystack, t) {
			return t, true
		}
	}
	return "", false
}
