package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobscout/internal/core/match"
	"jobscout/internal/platform/eino"
)

var errServiceDown = errors.New("connection refused")

// stubCompleter answers by prompt kind. A nil handler fails the call.
type stubCompleter struct {
	companies func(user string) (string, error)
	careers   func(user string) (string, error)
	roles     func(user string) (string, error)
	cv        func(user string) (string, error)

	calls []eino.Options
}

func downCompleter() *stubCompleter { return &stubCompleter{} }

func (s *stubCompleter) Complete(_ context.Context, _, user string, opts eino.Options) (string, error) {
	s.calls = append(s.calls, opts)
	var h func(string) (string, error)
	switch {
	case strings.Contains(user, "similar companies"):
		h = s.companies
	case strings.Contains(user, "careers/jobs page URL"):
		h = s.careers
	case strings.Contains(user, "similar role titles"):
		h = s.roles
	case strings.Contains(user, "Original CV"):
		h = s.cv
	}
	if h == nil {
		return "", errServiceDown
	}
	return h(user)
}

func reply(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}

// site is one fake web page.
type site struct {
	anchors    []match.Anchor
	anchorsErr error
	snapshot   match.JobPageSnapshot
	hang       bool
}

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launched int
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	l.launched++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

type fakeBrowser struct {
	sites   map[string]site
	visited []string
	opened  int
	closed  int
	// healthyFor is the number of pages that may be opened before the
	// session reports unhealthy. Zero means always healthy.
	healthyFor int
	shutdown   bool
}

func newFakeBrowser(sites map[string]site) *fakeBrowser {
	return &fakeBrowser{sites: sites}
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if !b.Healthy() {
		return nil, errors.New("browser has been closed")
	}
	b.opened++
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Healthy() bool {
	return b.healthyFor == 0 || b.opened < b.healthyFor
}

func (b *fakeBrowser) Close() error {
	b.shutdown = true
	return nil
}

type fakePage struct {
	browser *fakeBrowser
	url     string
	site    site
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.browser.visited = append(p.browser.visited, url)
	s, ok := p.browser.sites[url]
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	if s.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	p.url, p.site = url, s
	return nil
}

func (p *fakePage) Settle(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func (p *fakePage) SubmitSearch(context.Context, []string, string) error {
	return errors.New("no search box")
}

func (p *fakePage) Anchors(context.Context) ([]match.Anchor, error) {
	return p.site.anchors, p.site.anchorsErr
}

func (p *fakePage) Snapshot(_ context.Context, maxBody int) (match.JobPageSnapshot, error) {
	snap := p.site.snapshot
	if r := []rune(snap.BodyText); len(r) > maxBody {
		snap.BodyText = string(r[:maxBody])
	}
	return snap, nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Close() error {
	p.browser.closed++
	return nil
}

type fakeStatic struct {
	anchors []match.Anchor
	calls   int
}

func (s *fakeStatic) StaticAnchors(context.Context, string) ([]match.Anchor, error) {
	s.calls++
	return s.anchors, nil
}

func jobAnchor(href, text string) match.Anchor {
	return match.Anchor{Href: href, Text: text}
}

func londonDataJob(title string) site {
	return site{snapshot: match.JobPageSnapshot{
		Title:    title,
		BodyText: "We are hiring a data engineer in London. As a data engineer you will build pipelines. Our data engineer team is growing.",
	}}
}
