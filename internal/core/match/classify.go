package match

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Anchor is a raw link element pulled from a rendered page.
type Anchor struct {
	Href      string `json:"href"`
	Text      string `json:"text"`
	Title     string `json:"title,omitempty"`
	AriaLabel string `json:"ariaLabel,omitempty"`
}

// CandidateLink is an anchor provisionally believed to point to a posting.
type CandidateLink struct {
	Href       string `json:"href"`
	AnchorText string `json:"anchorText"`
	AriaLabel  string `json:"ariaLabel,omitempty"`
}

// Classify returns the anchors that look like job postings, in DOM order,
// capped at p.CandidateCap. Exclusion rules are checked before inclusion.
func Classify(anchors []Anchor, p Policy) []CandidateLink {
	p = p.normalized()
	out := make([]CandidateLink, 0, min(len(anchors), p.CandidateCap))
	seen := make(map[string]struct{}, len(anchors))

	for _, a := range anchors {
		if len(out) >= p.CandidateCap {
			break
		}
		href, ok := fetchable(a.Href)
		if !ok {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		text := collapseSpace(a.Text)
		if excluded(href, text, a, p) {
			continue
		}
		if !included(href, text, p) {
			continue
		}
		seen[href] = struct{}{}
		out = append(out, CandidateLink{Href: href, AnchorText: text, AriaLabel: strings.TrimSpace(a.AriaLabel)})
	}
	return out
}

func excluded(href, text string, a Anchor, p Policy) bool {
	if _, hit := containsAny(matchTarget(href), p.ExcludeURLTerms); hit {
		return true
	}
	meta := strings.ToLower(strings.Join([]string{text, a.Title, a.AriaLabel}, " "))
	_, hit := containsAny(meta, p.ExcludeTextTerms)
	return hit
}

func included(href, text string, p Policy) bool {
	if u, err := url.Parse(href); err == nil {
		if _, hit := containsAny(slashed(u.Path), p.JobPathSegments); hit {
			return true
		}
	}
	n := utf8.RuneCountInString(text)
	if n < p.TitleMinLen || n > p.TitleMaxLen {
		return false
	}
	return !isUILabel(text, p)
}

func isUILabel(text string, p Policy) bool {
	lower := strings.ToLower(strings.TrimRight(text, " .!>→›»"))
	for _, l := range p.UILabels {
		if lower == strings.ToLower(l) {
			return true
		}
	}
	return false
}

// fetchable returns href without its fragment when it is an absolute
// http(s) URL with a host.
func fetchable(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// matchTarget lowercases href and gives its path a trailing slash so that
// segment terms such as "/team/" also match ".../team".
func matchTarget(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return strings.ToLower(href)
	}
	target := strings.ToLower(u.Scheme + "://" + u.Host + slashed(u.Path))
	if u.RawQuery != "" {
		target += "?" + strings.ToLower(u.RawQuery)
	}
	return target
}

func slashed(path string) string {
	path = strings.ToLower(path)
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
