package match

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SearchCriteria is the seeker's filter, fixed for one run. ExpandedRoles
// always starts with Roles.
type SearchCriteria struct {
	Roles         []string `json:"roles"`
	ExpandedRoles []string `json:"expandedRoles"`
	Seniority     string   `json:"seniority,omitempty"`
	Cities        []string `json:"cities"`
	VisaRequired  bool     `json:"visaRequired"`
}

// JobPageSnapshot is the text captured from one posting page.
type JobPageSnapshot struct {
	Title    string `json:"title"`
	BodyText string `json:"bodyText"`
	Location string `json:"location,omitempty"`
}

// Decision is the scorer's verdict for one posting.
type Decision struct {
	Accepted          bool     `json:"accepted"`
	Reasons           []string `json:"reasons"`
	Location          string   `json:"location"`
	LocationConfirmed bool     `json:"locationConfirmed"`
}

const locationUnknown = "Location not specified"

// Score decides whether snap, fetched from pageURL, satisfies c.
//
// Precedence: a negative term in the title or URL path rejects outright. Terms
// match whole words only, so "story" does not hit "history". Otherwise
// the posting needs a role match and, when cities were requested, a city
// match. Seniority only rejects when p.MandatorySeniority is set.
func Score(snap JobPageSnapshot, pageURL string, c SearchCriteria, p Policy) Decision {
	p = p.normalized()
	title := strings.ToLower(snap.Title)
	body := strings.ToLower(snap.BodyText)
	explicitLoc := strings.ToLower(strings.TrimSpace(snap.Location))

	d := Decision{}
	d.Location, d.LocationConfirmed = backfillLocation(snap, c, p)

	if term, hit := containsWord(title+" "+urlPath(pageURL), p.NegativeTerms); hit {
		d.Reasons = append(d.Reasons, fmt.Sprintf("rejected: non-job content (%q)", term))
		return d
	}

	roleOK, roleReason := matchRole(title, body, roles(c), p.MinBodyRoleHits)
	d.Reasons = append(d.Reasons, roleReason)

	cityOK, cityReason := matchCity(title, body, explicitLoc, c.Cities)
	d.Reasons = append(d.Reasons, cityReason)

	seniorityOK := true
	if s := strings.ToLower(strings.TrimSpace(c.Seniority)); s != "" {
		seniorityOK = strings.Contains(title, s) || strings.Contains(body, s)
		switch {
		case seniorityOK:
			d.Reasons = append(d.Reasons, fmt.Sprintf("seniority %q found", c.Seniority))
		case p.MandatorySeniority:
			d.Reasons = append(d.Reasons, fmt.Sprintf("seniority %q not found (required)", c.Seniority))
		default:
			d.Reasons = append(d.Reasons, fmt.Sprintf("seniority %q not found (advisory)", c.Seniority))
		}
	}

	d.Accepted = roleOK && cityOK && (seniorityOK || !p.MandatorySeniority)
	return d
}

// urlPath returns the lowercased path of raw. The host is never scanned:
// a company named Storyblok still posts jobs.
func urlPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

// containsWord reports the first term found in haystack bounded on both
// sides by a non-alphanumeric rune or the string edge.
func containsWord(haystack string, terms []string) (string, bool) {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && hasWord(haystack, t) {
			return t, true
		}
	}
	return "", false
}

func hasWord(s, word string) bool {
	for from := 0; from <= len(s)-len(word); {
		at := strings.Index(s[from:], word)
		if at < 0 {
			return false
		}
		start, end := from+at, from+at+len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func roles(c SearchCriteria) []string {
	if len(c.ExpandedRoles) > 0 {
		return c.ExpandedRoles
	}
	return c.Roles
}

func matchRole(title, body string, terms []string, minHits int) (bool, string) {
	for _, r := range terms {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" && strings.Contains(title, r) {
			return true, fmt.Sprintf("role %q in title", r)
		}
	}
	for _, r := range terms {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if n := strings.Count(body, r); n >= minHits {
			return true, fmt.Sprintf("role %q appears %d times in body", r, n)
		}
	}
	return false, "no role term in title or body"
}

func matchCity(title, body, location string, cities []string) (bool, string) {
	if len(cities) == 0 {
		return true, "no city constraint"
	}
	for _, city := range cities {
		cl := strings.ToLower(strings.TrimSpace(city))
		if cl == "" {
			continue
		}
		if strings.Contains(body, cl) || strings.Contains(title, cl) || (location != "" && strings.Contains(location, cl)) {
			return true, fmt.Sprintf("city %q on page", city)
		}
	}
	return false, "no requested city on page"
}

// backfillLocation prefers the page's own location, then a requested city
// seen in the text, then the earliest known city in the body. The
// first-requested-city default is returned unconfirmed.
func backfillLocation(snap JobPageSnapshot, c SearchCriteria, p Policy) (string, bool) {
	if loc := strings.TrimSpace(snap.Location); loc != "" {
		return loc, true
	}
	text := strings.ToLower(snap.Title + "\n" + snap.BodyText)
	for _, city := range c.Cities {
		if cl := strings.ToLower(strings.TrimSpace(city)); cl != "" && strings.Contains(text, cl) {
			return strings.TrimSpace(city), true
		}
	}
	best, bestAt := "", -1
	for _, city := range p.KnownCities {
		cl := strings.ToLower(strings.TrimSpace(city))
		if cl == "" {
			continue
		}
		if at := strings.Index(text, cl); at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = city, at
		}
	}
	if bestAt >= 0 {
		return best, true
	}
	for _, city := range c.Cities {
		if strings.TrimSpace(city) != "" {
			return strings.TrimSpace(city), false
		}
	}
	return locationUnknown, false
}
