package htmltext

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/core/match"
)

var (
	mainSelectors  = []string{"main", `[role="main"]`, "#content", "#main", "article"}
	titleSelectors = []string{"h1", `[class*="job-title" i]`, `[class*="posting-headline" i]`, `[class*="title" i]`}
	locSelectors   = []string{
		`[itemprop="jobLocation"]`, `[data-qa*="location" i]`, `[data-testid*="location" i]`,
		`[class*="job-location" i]`, `[class*="location" i]`,
	}

	// class/id fragments that mark page chrome rather than content
	boilerplate = []string{
		"cookie", "consent", "banner", "navbar", "nav-", "menu-", "header",
		"share", "signup", "signin", "login", "promo", "modal", "popup", "dialog",
		"breadcrumb", "sidebar", "footer",
	}

	imageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	emphasisRe = regexp.MustCompile(`(\*\*|__|\*|_|` + "`" + `)`)
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-+]\s+`)
	blankRe    = regexp.MustCompile(`\n{3,}`)
)

// Markdown converts the main content of an HTML page to markdown with page
// chrome removed.
func Markdown(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	content := mainContent(doc)
	body, err := content.Html()
	if err != nil {
		return ""
	}
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(body)
	if err != nil {
		return ""
	}
	out = imageRe.ReplaceAllString(out, "")
	return strings.TrimSpace(blankRe.ReplaceAllString(out, "\n\n"))
}

// Text renders the main content as plain text: markdown links collapse to
// their label and formatting marks are dropped.
func Text(html string) string {
	out := Markdown(html)
	out = linkRe.ReplaceAllString(out, "$1")
	out = headingRe.ReplaceAllString(out, "")
	out = bulletRe.ReplaceAllString(out, "")
	out = emphasisRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, `\`, "")
	return strings.TrimSpace(blankRe.ReplaceAllString(out, "\n\n"))
}

// Snapshot builds a job page snapshot from raw HTML. Body text is cut to
// maxBody runes when maxBody > 0.
func Snapshot(html string, maxBody int) match.JobPageSnapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return match.JobPageSnapshot{}
	}
	snap := match.JobPageSnapshot{
		Title:    firstText(doc.Selection, titleSelectors),
		Location: firstText(doc.Selection, locSelectors),
		BodyText: Truncate(Text(html), maxBody),
	}
	if snap.Title == "" {
		snap.Title = Squash(doc.Find("title").First().Text())
	}
	if snap.Title == "" {
		snap.Title = "Job Position"
	}
	if len([]rune(snap.Location)) > 120 {
		snap.Location = ""
	}
	return snap
}

// Anchors lists every <a href> in document order with hrefs resolved
// against base. Script, mail and fragment links are skipped.
func Anchors(html, base string) []match.Anchor {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	baseURL, _ := url.Parse(base)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && baseURL != nil {
		if b, err := baseURL.Parse(href); err == nil {
			baseURL = b
		}
	}

	var out []match.Anchor
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := Resolve(baseURL, href)
		if abs == "" {
			return
		}
		title, _ := a.Attr("title")
		aria, _ := a.Attr("aria-label")
		out = append(out, match.Anchor{
			Href:      abs,
			Text:      Squash(a.Text()),
			Title:     strings.TrimSpace(title),
			AriaLabel: strings.TrimSpace(aria),
		})
	})
	return out
}

// Resolve makes href absolute against base. It returns "" for hrefs that
// cannot lead to a page.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// Squash collapses runs of whitespace to single spaces.
func Squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to n runes. n <= 0 leaves s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	var content *goquery.Selection
	for _, sel := range mainSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}
	content.Find("script, style, noscript, nav, header, footer, aside, form, iframe, svg, button, input").Remove()
	content.Find(`[role="navigation"], [role="banner"], [role="contentinfo"], [aria-label*="cookie" i], [aria-modal]`).Remove()
	content.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		lower := strings.ToLower(class + " " + id)
		for _, kw := range boilerplate {
			if strings.Contains(lower, kw) {
				sel.Remove()
				return
			}
		}
	})
	return content
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := Squash(root.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
