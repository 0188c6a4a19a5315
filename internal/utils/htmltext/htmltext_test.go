package htmltext

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const careersPage = `<html><head><title>Careers | Acme</title></head><body>
<nav><a href="/about">About</a></nav>
<main>
  <h2>Open roles</h2>
  <a href="/jobs/42" title="Apply">Senior   Data
     Engineer</a>
  <a href="https://boards.greenhouse.io/acme/jobs/7" aria-label="Platform engineer role">Platform Engineer</a>
  <a href="#top">Back to top</a>
  <a href="mailto:jobs@acme.com">Email us</a>
  <a href="javascript:void(0)">Menu</a>
</main>
</body></html>`

func TestAnchors_ResolvesAndSkipsNonPages(t *testing.T) {
	got := Anchors(careersPage, "https://acme.com/careers/")

	require.Len(t, got, 3)
	assert.Equal(t, "https://acme.com/about", got[0].Href)
	assert.Equal(t, "https://acme.com/jobs/42", got[1].Href)
	assert.Equal(t, "Senior Data Engineer", got[1].Text)
	assert.Equal(t, "Apply", got[1].Title)
	assert.Equal(t, "Platform engineer role", got[2].AriaLabel)
}

func TestAnchors_HonoursBaseTag(t *testing.T) {
	page := `<html><head><base href="https://jobs.acme.com/board/"></head><body><a href="role/1">Data Engineer</a></body></html>`

	got := Anchors(page, "https://acme.com/careers")

	require.Len(t, got, 1)
	assert.Equal(t, "https://jobs.acme.com/board/role/1", got[0].Href)
}

func TestSnapshot(t *testing.T) {
	page := `<html><head><title>Acme Jobs</title></head><body>
<header class="site-header"><a href="/">Acme</a></header>
<main>
  <h1>Senior Data Engineer</h1>
  <div class="job-location">London, UK</div>
  <p>As a <strong>data engineer</strong> you will own our <a href="/stack">pipelines</a>.</p>
</main>
<footer>Cookie settings</footer>
</body></html>`

	snap := Snapshot(page, 0)

	assert.Equal(t, "Senior Data Engineer", snap.Title)
	assert.Equal(t, "London, UK", snap.Location)
	assert.Contains(t, snap.BodyText, "As a data engineer you will own our pipelines.")
	assert.NotContains(t, snap.BodyText, "Cookie settings")
	assert.NotContains(t, snap.BodyText, "](")
}

func TestSnapshot_FallsBackToDocumentTitle(t *testing.T) {
	snap := Snapshot(`<html><head><title> Data Engineer - Globex </title></head><body><p>`+strings.Repeat("word ", 100)+`</p></body></html>`, 50)

	assert.Equal(t, "Data Engineer - Globex", snap.Title)
	assert.Len(t, []rune(snap.BodyText), 50)
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://acme.com/careers/index.html")

	assert.Equal(t, "https://acme.com/careers/jobs/1", Resolve(base, "jobs/1"))
	assert.Equal(t, "https://cdn.acme.com/x", Resolve(base, "//cdn.acme.com/x"))
	assert.Equal(t, "", Resolve(base, "tel:+123"))
	assert.Equal(t, "", Resolve(base, "ftp://acme.com/file"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
