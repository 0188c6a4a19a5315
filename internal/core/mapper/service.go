package mapper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly"

	"jobscout/internal/core/match"
	"jobscout/internal/logger"
	"jobscout/internal/utils/htmltext"
)

const defaultTimeout = 15 * time.Second

// Service fetches careers pages over plain HTTP. It is the fallback when
// the rendered DOM cannot be read.
type Service struct {
	log       *logger.Logger
	userAgent string
	timeout   time.Duration
}

func NewMapService(userAgent string) *Service {
	return &Service{log: logger.New("MapService"), userAgent: userAgent, timeout: defaultTimeout}
}

// StaticAnchors returns the anchors of pageURL's server-rendered HTML in
// document order. Scripted links are invisible to it.
func (s *Service) StaticAnchors(ctx context.Context, pageURL string) ([]match.Anchor, error) {
	cleaned := cleanURL(pageURL)
	s.log.LogDebugf("static fetch %s", cleaned)

	c := colly.NewCollector(colly.MaxDepth(1))
	if s.userAgent != "" {
		c.UserAgent = s.userAgent
	}
	c.SetRequestTimeout(s.requestTimeout(ctx))

	var (
		anchors  []match.Anchor
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s (status %d): %w", r.Request.URL, r.StatusCode, err)
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" {
			return
		}
		anchors = append(anchors, match.Anchor{
			Href:      link,
			Text:      htmltext.Squash(e.Text),
			Title:     strings.TrimSpace(e.Attr("title")),
			AriaLabel: strings.TrimSpace(e.Attr("aria-label")),
		})
	})

	if err := c.Visit(cleaned); err != nil {
		return nil, fmt.Errorf("visit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	s.log.LogDebugf("static fetch %s found %d anchors", cleaned, len(anchors))
	return anchors, nil
}

func (s *Service) requestTimeout(ctx context.Context) time.Duration {
	d := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func cleanURL(u string) string {
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	return u
}

// normalize drops fragments and the bare root path. Non-http links become "".
func normalize(u string) string {
	p, err := url.Parse(u)
	if err != nil || (p.Scheme != "http" && p.Scheme != "https") {
		return ""
	}
	p.Fragment = ""
	if p.Path == "/" {
		p.Path = ""
	}
	return p.String()
}
