package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"jobscout/internal/core/match"
	"jobscout/internal/logger"
	"jobscout/prompts"
)

const (
	descriptionChars = 200

	msgNoListings     = "No job listings found on careers page"
	msgBudgetExceeded = "company time budget exceeded"
	msgBrowserGone    = "browser session unavailable"
	msgRunDeadline    = "run deadline exceeded"
	msgRunCancelled   = "run cancelled"
)

// Orchestrator drives one run: expansion, resolution, then a sequential
// crawl-classify-score-customize loop per company.
type Orchestrator struct {
	expander   *Expander
	resolver   *Resolver
	customizer *Customizer
	launcher   Launcher
	static     AnchorSource
	policy     match.Policy
	opts       Options
	log        *logger.Logger

	progress ProgressFunc
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

func NewOrchestrator(llm Completer, set *prompts.Set, launcher Launcher, policy match.Policy, opts Options) *Orchestrator {
	return &Orchestrator{
		expander:   NewExpander(llm, set, opts.CompanyCap),
		resolver:   NewResolver(llm, set),
		customizer: NewCustomizer(llm, set),
		launcher:   launcher,
		policy:     policy.WithCandidateCap(opts.CandidateCap),
		opts:       opts,
		log:        logger.New("Orchestrator"),
		sleep:      Sleep,
		now:        time.Now,
	}
}

// WithStaticAnchors sets the browserless anchor source used when DOM
// evaluation fails.
func (o *Orchestrator) WithStaticAnchors(src AnchorSource) *Orchestrator {
	o.static = src
	return o
}

func (o *Orchestrator) WithCareersCache(c CareersCache) *Orchestrator {
	o.resolver.WithCache(c)
	return o
}

// ProgressFunc is called after each company result is recorded.
type ProgressFunc func(done, total int, r CompanyResult)

// WithProgress sets the default progress callback for Run.
func (o *Orchestrator) WithProgress(fn ProgressFunc) *Orchestrator {
	o.progress = fn
	return o
}

// Run validates req and executes the pipeline. The only error returned is a
// *ValidationError; every other failure is reported per company in the
// summary.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunSummary, error) {
	return o.RunWithProgress(ctx, req, o.progress)
}

// RunWithProgress is Run with a per-call progress callback, for callers
// sharing one Orchestrator across concurrent runs.
func (o *Orchestrator) RunWithProgress(ctx context.Context, req Request, progress ProgressFunc) (*RunSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	companies := o.expander.Companies(ctx, req.Companies, req.Roles)
	if companies.Fallback {
		o.log.LogWarnf("using seed companies: %v", companies.Err)
	}

	targets := make([]CompanyTarget, 0, len(companies.Value))
	for _, res := range o.resolver.ResolveAll(ctx, companies.Value) {
		if res.Fallback {
			o.log.LogDebugf("guessed careers page %s: %v", res.Value.CareersURL, res.Err)
		}
		targets = append(targets, res.Value)
	}

	roles := o.expander.Roles(ctx, req.Roles)
	criteria := match.SearchCriteria{
		Roles:         req.Roles,
		ExpandedRoles: roles.Value,
		Seniority:     req.Seniority,
		Cities:        req.Cities,
		VisaRequired:  req.VisaRequired,
	}

	acc := NewAccumulator(targets)
	browser, err := o.launcher.Launch(ctx)
	if err != nil {
		o.log.LogErrorf("browser launch failed: %v", err)
		acc.FailRemaining(0, fmt.Sprintf("%s: %v", msgBrowserGone, err))
		return acc.Summary(criteria, o.now()), nil
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			o.log.LogWarnf("browser close: %v", cerr)
		}
	}()

	for i, target := range targets {
		if ctx.Err() != nil {
			acc.FailRemaining(i, runStopMessage(ctx))
			break
		}
		if !browser.Healthy() {
			acc.FailRemaining(i, msgBrowserGone)
			break
		}
		if i > 0 {
			if err := o.sleep(ctx, o.opts.CourtesyDelay); err != nil {
				acc.FailRemaining(i, runStopMessage(ctx))
				break
			}
		}
		o.log.LogInfof("[%d/%d] %s -> %s", i+1, len(targets), target.Name, target.CareersURL)
		acc.Record(i, o.processCompany(ctx, browser, target, criteria, req.Template))
		if r, ok := acc.Result(i); ok && progress != nil {
			progress(i+1, len(targets), r)
		}
	}

	summary := acc.Summary(criteria, o.now())
	o.log.LogSuccessf("run finished: %d companies, %d with matches, %d jobs", summary.TotalCompanies, summary.SuccessfulMatches, summary.TotalJobs())
	return summary, nil
}

type scored struct {
	listing JobListing
	reasons []string
}

func (o *Orchestrator) processCompany(runCtx context.Context, browser Browser, target CompanyTarget, criteria match.SearchCriteria, template string) CompanyResult {
	result := CompanyResult{Company: target.Name, CareersURL: target.CareersURL}
	log := o.log.With(map[string]any{"company": target.Name})

	ctx, cancel := context.WithTimeout(runCtx, o.opts.CompanyBudget)
	defer cancel()

	anchors, pageURL, err := o.discover(ctx, browser, target, criteria)
	if err != nil {
		log.LogWarnf("careers page failed: %v", err)
		result.Status = StatusError
		result.Message = o.failureMessage(runCtx, ctx, err)
		return result
	}

	candidates := match.Classify(dropSelfLinks(anchors, target.CareersURL, pageURL), o.policy)
	log.LogInfof("%d anchors, %d candidates", len(anchors), len(candidates))
	if len(candidates) == 0 {
		result.Status = StatusNoMatches
		result.Message = msgNoListings
		return result
	}

	accepted, lost := o.scoreCandidates(ctx, browser, candidates, criteria, log)
	if len(accepted) == 0 {
		if lost {
			log.LogWarnf("browser session lost before candidates were scored")
			result.Status = StatusError
			result.Message = msgBrowserGone
			return result
		}
		if ctx.Err() != nil {
			result.Status = StatusError
			result.Message = o.failureMessage(runCtx, ctx, ctx.Err())
			return result
		}
		result.Status = StatusNoMatches
		result.Message = noMatchMessage(criteria)
		return result
	}

	// Accepted matches survive an expired company budget, so customization
	// runs under the run context.
	for _, a := range accepted {
		custom := o.customizer.Customize(runCtx, a.listing, target.Name, template)
		if custom.Fallback {
			log.LogWarnf("template returned unchanged for %q: %v", a.listing.Title, custom.Err)
		}
		result.Jobs = append(result.Jobs, JobMatch{
			Job:          a.listing,
			CustomizedCV: custom.Value.CV,
			CVChanges:    custom.Value.Changes,
			MatchReasons: a.reasons,
		})
	}
	result.Status = StatusSuccess
	return result
}

// discover loads the careers page and returns its anchors plus the final
// page URL. The page is closed before returning.
func (o *Orchestrator) discover(ctx context.Context, browser Browser, target CompanyTarget, criteria match.SearchCriteria) ([]match.Anchor, string, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, "", err
	}
	defer page.Close()

	if err := o.navigate(ctx, page, target.CareersURL); err != nil {
		return nil, "", err
	}
	if err := page.Settle(ctx, o.opts.SettleDelay); err != nil {
		return nil, "", err
	}

	if len(criteria.Roles) > 0 && len(o.policy.SearchBoxSelectors) > 0 {
		if err := page.SubmitSearch(ctx, o.policy.SearchBoxSelectors, criteria.Roles[0]); err != nil {
			o.log.LogDebugf("search box skipped on %s: %v", target.CareersURL, err)
		} else if err := page.Settle(ctx, o.opts.SettleDelay); err != nil {
			return nil, "", err
		}
	}

	pageURL := page.URL()
	anchors, err := page.Anchors(ctx)
	if err == nil {
		return anchors, pageURL, nil
	}
	if ctx.Err() != nil || o.static == nil {
		return nil, pageURL, &ExtractionError{URL: pageURL, Message: "anchor extraction", Cause: err}
	}
	o.log.LogWarnf("DOM extraction failed on %s, falling back to static fetch: %v", pageURL, err)
	static, serr := o.static.StaticAnchors(ctx, pageURL)
	if serr != nil {
		return nil, pageURL, &ExtractionError{URL: pageURL, Message: "static fallback", Cause: errors.Join(err, serr)}
	}
	return static, pageURL, nil
}

func (o *Orchestrator) navigate(ctx context.Context, page Page, link string) error {
	navCtx, cancel := context.WithTimeout(ctx, o.opts.NavigationTimeout)
	defer cancel()
	if err := page.Goto(navCtx, link); err != nil {
		var nav *NavigationError
		if errors.As(err, &nav) {
			return err
		}
		return &NavigationError{URL: link, Cause: err}
	}
	return nil
}

// scoreCandidates visits candidates in order and stops at MatchCap accepted
// postings or when ctx ends. Per-job failures skip the candidate. lost
// reports that the browser session died with candidates left unvisited.
func (o *Orchestrator) scoreCandidates(ctx context.Context, browser Browser, candidates []match.CandidateLink, criteria match.SearchCriteria, log *logger.Logger) (accepted []scored, lost bool) {
	for _, c := range candidates {
		if len(accepted) >= o.opts.MatchCap || ctx.Err() != nil {
			break
		}
		if !browser.Healthy() {
			return accepted, true
		}
		snap, finalURL, err := o.fetchJob(ctx, browser, c.Href)
		if err != nil {
			log.LogDebugf("skipped %s: %v", c.Href, err)
			continue
		}
		d := match.Score(snap, finalURL, criteria, o.policy)
		if !d.Accepted {
			log.LogDebugf("rejected %q: %s", snap.Title, strings.Join(d.Reasons, "; "))
			continue
		}
		log.LogInfof("matched %q (%s)", snap.Title, c.Href)
		accepted = append(accepted, scored{
			listing: JobListing{
				Title:             snap.Title,
				Location:          d.Location,
				LocationConfirmed: d.LocationConfirmed,
				Description:       describe(snap.BodyText),
				URL:               c.Href,
			},
			reasons: d.Reasons,
		})
	}
	return accepted, false
}

func (o *Orchestrator) fetchJob(ctx context.Context, browser Browser, link string) (match.JobPageSnapshot, string, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return match.JobPageSnapshot{}, "", err
	}
	defer page.Close()

	if err := o.navigate(ctx, page, link); err != nil {
		return match.JobPageSnapshot{}, "", err
	}
	if err := page.Settle(ctx, o.opts.JobSettleDelay); err != nil {
		return match.JobPageSnapshot{}, "", err
	}
	snap, err := page.Snapshot(ctx, o.opts.BodyChars)
	if err != nil {
		return match.JobPageSnapshot{}, "", &ExtractionError{URL: link, Message: "job snapshot", Cause: err}
	}
	finalURL := page.URL()
	if finalURL == "" {
		finalURL = link
	}
	return snap, finalURL, nil
}

func (o *Orchestrator) failureMessage(runCtx, companyCtx context.Context, err error) string {
	switch {
	case runCtx.Err() != nil:
		return runStopMessage(runCtx)
	case companyCtx.Err() != nil:
		return msgBudgetExceeded
	default:
		return err.Error()
	}
}

func runStopMessage(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		return msgRunCancelled
	}
	return msgRunDeadline
}

func noMatchMessage(c match.SearchCriteria) string {
	msg := "No jobs matching " + strings.Join(c.Roles, ", ")
	if c.Seniority != "" {
		msg += " at " + c.Seniority + " level"
	}
	return msg
}

// describe keeps the first 200 characters of body text.
func describe(body string) string {
	body = strings.TrimSpace(body)
	r := []rune(body)
	if len(r) > descriptionChars {
		return string(r[:descriptionChars]) + "..."
	}
	return body
}

// dropSelfLinks removes anchors that point back at the careers page itself.
func dropSelfLinks(anchors []match.Anchor, urls ...string) []match.Anchor {
	self := map[string]struct{}{}
	for _, u := range urls {
		if k := selfKey(u); k != "" {
			self[k] = struct{}{}
		}
	}
	out := make([]match.Anchor, 0, len(anchors))
	for _, a := range anchors {
		if _, skip := self[selfKey(a.Href)]; skip {
			continue
		}
		out = append(out, a)
	}
	return out
}

func selfKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.EscapedPath(), "/") + "?" + u.RawQuery
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
