package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"jobscout/internal/core/match"
	"jobscout/internal/core/pipeline"
	"jobscout/internal/logger"
	"jobscout/internal/utils/htmltext"
)

// ErrSessionClosed is returned once the underlying browser has gone away.
var ErrSessionClosed = errors.New("browser session closed")

var launchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
	"--disable-features=VizDisplayCompositor",
	"--no-first-run",
	"--disable-default-apps",
	"--disable-extensions",
}

type Config struct {
	Headless bool
	Strategy Strategy
	// Default per-call timeout when the caller's context has no deadline.
	DefaultTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Headless: true, Strategy: StrategyDesktop, DefaultTimeout: 15 * time.Second}
}

// Launcher starts one Chromium session per pipeline run.
type Launcher struct {
	cfg Config
	log *logger.Logger
}

func NewLauncher(cfg Config) *Launcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	return &Launcher{cfg: cfg, log: logger.New("Browser")}
}

func (l *Launcher) Launch(ctx context.Context) (pipeline.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch: %w", err)
	}
	profile := ProfileFor(l.cfg.Strategy)
	l.log.LogDebugf("session started (%s, %s)", l.cfg.Strategy, profile.UserAgent)
	return &Session{pw: pw, browser: b, profile: profile, timeout: l.cfg.DefaultTimeout, log: l.log}, nil
}

// Session is a live browser. Every page gets its own browser context so
// cookies and storage never leak between companies.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	profile HeaderProfile
	timeout time.Duration
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
	broken bool
}

func (s *Session) NewPage(ctx context.Context) (pipeline.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Healthy() {
		return nil, ErrSessionClosed
	}
	bctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(s.profile.UserAgent),
		ExtraHttpHeaders: s.profile.Headers(),
		IsMobile:         playwright.Bool(s.profile.Mobile),
	})
	if err != nil {
		return nil, s.classify(fmt.Errorf("new context: %w", err))
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, s.classify(fmt.Errorf("new page: %w", err))
	}
	return &Page{session: s, bctx: bctx, page: page}, nil
}

// Healthy reports whether new pages can still be opened.
func (s *Session) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.broken && s.browser.IsConnected()
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.browser.Close()
	if serr := s.pw.Stop(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// classify marks the session broken when err shows the browser is gone.
func (s *Session) classify(err error) error {
	if err == nil || !errors.Is(err, playwright.ErrTargetClosed) {
		return err
	}
	s.mu.Lock()
	s.broken = !s.browser.IsConnected()
	s.mu.Unlock()
	if s.broken {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return err
}

// timeoutMs converts the time left on ctx into a playwright timeout.
func (s *Session) timeoutMs(ctx context.Context) *float64 {
	d := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		d = time.Until(deadline)
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// Page is one tab inside its own browser context.
type Page struct {
	session *Session
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// Goto waits for DOMContentLoaded, then retries once waiting for the full
// load event. HTTP errors count as navigation failures.
func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &pipeline.NavigationError{URL: url, Cause: err}
	}
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   p.session.timeoutMs(ctx),
	})
	if err != nil && ctx.Err() == nil {
		resp, err = p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
			Timeout:   p.session.timeoutMs(ctx),
		})
	}
	if err != nil {
		return &pipeline.NavigationError{URL: url, Cause: p.session.classify(err)}
	}
	if err := ctx.Err(); err != nil {
		return &pipeline.NavigationError{URL: url, Cause: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return &pipeline.NavigationError{URL: url, Message: fmt.Sprintf("HTTP %d", resp.Status())}
	}
	return nil
}

// Settle gives client-side rendering time to finish.
func (p *Page) Settle(ctx context.Context, d time.Duration) error {
	return pipeline.Sleep(ctx, d)
}

// SubmitSearch types term into the first visible search box and presses
// Enter. It fails when no selector matches a visible input.
func (p *Page) SubmitSearch(ctx context.Context, selectors []string, term string) error {
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		box := p.page.Locator(sel).First()
		visible, err := box.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := box.Fill(term, playwright.LocatorFillOptions{Timeout: p.session.timeoutMs(ctx)}); err != nil {
			return fmt.Errorf("fill %s: %w", sel, err)
		}
		if err := box.Press("Enter", playwright.LocatorPressOptions{Timeout: p.session.timeoutMs(ctx)}); err != nil {
			return fmt.Errorf("submit %s: %w", sel, err)
		}
		_ = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: p.session.timeoutMs(ctx),
		})
		return nil
	}
	return errors.New("no visible search box")
}

const anchorsScript = `() => Array.from(document.querySelectorAll('a[href]')).map(a => ({
  href: a.href || '',
  text: (a.innerText || a.textContent || '').trim(),
  title: a.getAttribute('title') || '',
  aria: a.getAttribute('aria-label') || ''
}))`

// Anchors reads links from the rendered DOM. When evaluation fails it parses
// the serialized page instead.
func (p *Page) Anchors(ctx context.Context) ([]match.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := p.page.Evaluate(anchorsScript)
	if err == nil {
		return decodeAnchors(raw), nil
	}
	html, cerr := p.page.Content()
	if cerr != nil {
		return nil, p.session.classify(errors.Join(err, cerr))
	}
	p.session.log.LogDebugf("anchor script failed on %s, parsing HTML: %v", p.page.URL(), err)
	return htmltext.Anchors(html, p.page.URL()), nil
}

const snapshotScript = `(maxBody) => {
  const pick = (sels) => {
    for (const s of sels) {
      const el = document.querySelector(s);
      const t = el && (el.innerText || el.textContent || '').trim();
      if (t) return t;
    }
    return '';
  };
  const title = pick(['h1', '[class*="job-title" i]', '[class*="posting-headline" i]']) || (document.title || '').trim();
  const location = pick(['[itemprop="jobLocation"]', '[data-qa*="location" i]', '[data-testid*="location" i]', '[class*="job-location" i]', '[class*="location" i]']);
  const body = (document.body && document.body.innerText) || '';
  return { title, location, body: maxBody > 0 ? body.substring(0, maxBody) : body };
}`

// Snapshot captures title, visible body text and any labelled location.
func (p *Page) Snapshot(ctx context.Context, maxBody int) (match.JobPageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return match.JobPageSnapshot{}, err
	}
	raw, err := p.page.Evaluate(snapshotScript, maxBody)
	if err == nil {
		if snap, ok := decodeSnapshot(raw, maxBody); ok {
			return snap, nil
		}
	}
	html, cerr := p.page.Content()
	if cerr != nil {
		return match.JobPageSnapshot{}, p.session.classify(errors.Join(err, cerr))
	}
	return htmltext.Snapshot(html, maxBody), nil
}

func (p *Page) URL() string { return p.page.URL() }

func (p *Page) Close() error {
	err := p.page.Close()
	if cerr := p.bctx.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func decodeAnchors(raw interface{}) []match.Anchor {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]match.Anchor, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		a := match.Anchor{
			Href:      str(m, "href"),
			Text:      htmltext.Squash(str(m, "text")),
			Title:     str(m, "title"),
			AriaLabel: str(m, "aria"),
		}
		if a.Href != "" {
			out = append(out, a)
		}
	}
	return out
}

func decodeSnapshot(raw interface{}, maxBody int) (match.JobPageSnapshot, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return match.JobPageSnapshot{}, false
	}
	snap := match.JobPageSnapshot{
		Title:    htmltext.Squash(str(m, "title")),
		Location: htmltext.Squash(str(m, "location")),
		BodyText: htmltext.Truncate(str(m, "body"), maxBody),
	}
	if snap.Title == "" {
		snap.Title = "Job Position"
	}
	if len([]rune(snap.Location)) > 120 {
		snap.Location = ""
	}
	return snap, true
}

func str(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
