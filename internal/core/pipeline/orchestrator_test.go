package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout/internal/core/match"
	"jobscout/prompts"
)

const cvTemplate = "Jane Doe\nData engineer with 6 years of Spark and Airflow."

func testOptions() Options {
	o := DefaultOptions()
	o.NavigationTimeout = time.Second
	o.SettleDelay = 0
	o.JobSettleDelay = 0
	o.CourtesyDelay = 0
	o.CompanyBudget = 5 * time.Second
	o.RunTimeout = 10 * time.Second
	return o
}

func newTestOrchestrator(llm Completer, b *fakeBrowser) (*Orchestrator, *fakeLauncher) {
	l := &fakeLauncher{browser: b}
	o := NewOrchestrator(llm, prompts.New(), l, match.DefaultPolicy(), testOptions())
	o.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	o.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	return o, l
}

func dataEngineerRequest(companies ...string) Request {
	return Request{
		Email:     "jane@example.com",
		Companies: companies,
		Roles:     []string{"Data Engineer"},
		Seniority: "Senior",
		Cities:    []string{"London"},
		Template:  cvTemplate,
	}
}

func TestRun_AcmeWithCompletionServiceDown(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchors: []match.Anchor{
			jobAnchor("https://acme.com/careers", "Careers home page link"),
			jobAnchor("https://acme.com/jobs/42", "Senior Data Engineer"),
		}},
		"https://acme.com/jobs/42": londonDataJob("Senior Data Engineer — London"),
	})
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	r := summary.Results[0]
	assert.Equal(t, "Acme", r.Company)
	assert.Equal(t, "https://acme.com/careers", r.CareersURL)
	assert.Equal(t, StatusSuccess, r.Status)
	require.Len(t, r.Jobs, 1)
	assert.Equal(t, "https://acme.com/jobs/42", r.Jobs[0].Job.URL)
	assert.Equal(t, "London", r.Jobs[0].Job.Location)
	assert.Equal(t, cvTemplate, r.Jobs[0].CustomizedCV)
	assert.Equal(t, []string{UnchangedNote}, r.Jobs[0].CVChanges)
	assert.Equal(t, []string{"Data Engineer"}, summary.Criteria.ExpandedRoles)
	assert.Equal(t, 1, summary.SuccessfulMatches)
	assert.True(t, b.shutdown)
	assert.Equal(t, b.opened, b.closed)
}

func TestRun_ZeroCandidatesIsNoMatches(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchors: []match.Anchor{
			jobAnchor("https://acme.com/about/", "About us"),
			jobAnchor("https://www.linkedin.com/company/acme", "Follow us on LinkedIn"),
		}},
	})
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	r := summary.Results[0]
	assert.Equal(t, StatusNoMatches, r.Status)
	assert.Equal(t, msgNoListings, r.Message)
	assert.NotNil(t, r.Jobs)
	assert.Empty(t, r.Jobs)
	assert.Equal(t, 1, summary.NoMatches)
}

func TestRun_PerCompanyIsolation(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://globex.com/careers": {anchors: []match.Anchor{jobAnchor("https://globex.com/jobs/7", "Data Engineer, Platform")}},
		"https://globex.com/jobs/7":  londonDataJob("Data Engineer, Platform (London)"),
	})
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, StatusError, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Message, "navigation to https://acme.com/careers failed")
	assert.Equal(t, StatusSuccess, summary.Results[1].Status)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.SuccessfulMatches)
}

func TestRun_CandidateAndMatchCaps(t *testing.T) {
	sites := map[string]site{}
	var anchors []match.Anchor
	for i := 1; i <= 8; i++ {
		href := fmt.Sprintf("https://acme.com/jobs/%d", i)
		anchors = append(anchors, jobAnchor(href, fmt.Sprintf("Opening number %d", i)))
		sites[href] = londonDataJob(fmt.Sprintf("Data Engineer %d", i))
	}
	sites["https://acme.com/careers"] = site{anchors: anchors}
	b := newFakeBrowser(sites)
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	assert.Len(t, summary.Results[0].Jobs, 2)
	assert.Equal(t, []string{"https://acme.com/careers", "https://acme.com/jobs/1", "https://acme.com/jobs/2"}, b.visited)
}

func TestRun_CandidateCapBoundsVisits(t *testing.T) {
	sites := map[string]site{}
	var anchors []match.Anchor
	for i := 1; i <= 8; i++ {
		href := fmt.Sprintf("https://acme.com/jobs/%d", i)
		anchors = append(anchors, jobAnchor(href, fmt.Sprintf("Opening number %d", i)))
		sites[href] = site{snapshot: match.JobPageSnapshot{Title: "Office Manager", BodyText: "Paris office"}}
	}
	sites["https://acme.com/careers"] = site{anchors: anchors}
	b := newFakeBrowser(sites)
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	assert.Equal(t, StatusNoMatches, summary.Results[0].Status)
	assert.Equal(t, "No jobs matching Data Engineer at Senior level", summary.Results[0].Message)
	assert.Len(t, b.visited, 1+5)
}

func TestRun_NegativeFilterRejectsTeamPage(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchors: []match.Anchor{jobAnchor("https://acme.com/jobs/people", "Engineering at Acme")}},
		"https://acme.com/jobs/people": {snapshot: match.JobPageSnapshot{
			Title:    "Meet our Engineering Team",
			BodyText: "Our data engineer Sam works in London. Every data engineer here loves Spark.",
		}},
	})
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	assert.Equal(t, StatusNoMatches, summary.Results[0].Status)
}

func TestRun_StaticFallbackOnExtractionFailure(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchorsErr: errors.New("Execution context was destroyed")},
		"https://acme.com/jobs/42": londonDataJob("Senior Data Engineer"),
	})
	static := &fakeStatic{anchors: []match.Anchor{jobAnchor("https://acme.com/jobs/42", "Senior Data Engineer")}}
	o, _ := newTestOrchestrator(downCompleter(), b)
	o.WithStaticAnchors(static)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	assert.Equal(t, 1, static.calls)
	assert.Equal(t, StatusSuccess, summary.Results[0].Status)
}

func TestRun_ExtractionFailureWithoutFallbackIsError(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchorsErr: errors.New("Execution context was destroyed")},
	})
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	assert.Equal(t, StatusError, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Message, "extraction on https://acme.com/careers failed")
}

func TestRun_CompanyBudgetExceeded(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers":   {hang: true},
		"https://globex.com/careers": {},
	})
	o, _ := newTestOrchestrator(downCompleter(), b)
	o.opts.CompanyBudget = 20 * time.Millisecond

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	assert.Equal(t, StatusError, summary.Results[0].Status)
	assert.Equal(t, msgBudgetExceeded, summary.Results[0].Message)
	assert.Equal(t, StatusNoMatches, summary.Results[1].Status)
}

func TestRun_BrowserLossFailsRemaining(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {},
	})
	b.healthyFor = 1
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex", "Initech"))

	require.NoError(t, err)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, StatusNoMatches, summary.Results[0].Status)
	for _, r := range summary.Results[1:] {
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, msgBrowserGone, r.Message)
	}
}

func TestRun_BrowserLossMidCompanyIsError(t *testing.T) {
	b := newFakeBrowser(map[string]site{
		"https://acme.com/careers": {anchors: []match.Anchor{jobAnchor("https://acme.com/jobs/42", "Senior Data Engineer")}},
		"https://acme.com/jobs/42": londonDataJob("Senior Data Engineer — London"),
	})
	b.healthyFor = 1
	o, _ := newTestOrchestrator(downCompleter(), b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, msgBrowserGone, r.Message)
	}
	assert.Equal(t, 0, summary.NoMatches)
	assert.NotContains(t, b.visited, "https://acme.com/jobs/42")
}

func TestRun_LaunchFailureMarksEveryCompany(t *testing.T) {
	o, l := newTestOrchestrator(downCompleter(), nil)
	l.err = errors.New("executable doesn't exist")

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Errors)
	assert.Contains(t, summary.Results[1].Message, msgBrowserGone)
}

func TestRun_CancelledContext(t *testing.T) {
	b := newFakeBrowser(map[string]site{})
	o, _ := newTestOrchestrator(downCompleter(), b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.Run(ctx, dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, msgRunCancelled, summary.Results[0].Message)
	assert.Empty(t, b.visited)
}

func TestRun_ValidationBeforeLaunch(t *testing.T) {
	o, l := newTestOrchestrator(downCompleter(), newFakeBrowser(nil))

	_, err := o.Run(context.Background(), Request{Email: "jane@example.com", Companies: []string{" ", ""}, Roles: []string{"SRE"}, Template: cvTemplate})

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, l.launched)
}

func TestRun_ExpandedCompaniesAndRoles(t *testing.T) {
	llm := &stubCompleter{
		companies: reply(`{"companies": ["Globex"]}`),
		careers: func(user string) (string, error) {
			return `{"careersUrl": "https://jobs.example/board", "confidence": "medium"}`, nil
		},
		roles: reply(`{"expandedRoles": ["Analytics Engineer"]}`),
		cv:    reply(`{"customizedCv": "Tailored", "changes": ["Led with Spark"]}`),
	}
	b := newFakeBrowser(map[string]site{
		"https://jobs.example/board": {anchors: []match.Anchor{jobAnchor("https://jobs.example/board/jobs/1", "Analytics Engineer")}},
		"https://jobs.example/board/jobs/1": {snapshot: match.JobPageSnapshot{
			Title:    "Analytics Engineer",
			BodyText: "Remote-friendly team based in London.",
		}},
	})
	o, _ := newTestOrchestrator(llm, b)

	summary, err := o.Run(context.Background(), dataEngineerRequest("Acme"))

	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "Acme", summary.Results[0].Company)
	assert.Equal(t, "Globex", summary.Results[1].Company)
	assert.Equal(t, []string{"Data Engineer", "Analytics Engineer"}, summary.Criteria.ExpandedRoles)
	assert.Equal(t, "Tailored", summary.Results[0].Jobs[0].CustomizedCV)
	assert.Equal(t, 2, summary.TotalJobs())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "short", describe("  short "))
	long := describe(strings.Repeat("x", 250))
	assert.Len(t, long, 203)
}

func TestDropSelfLinks(t *testing.T) {
	in := []match.Anchor{
		{Href: "https://acme.com/careers/"},
		{Href: "https://ACME.com/careers#top"},
		{Href: "https://acme.com/careers/jobs/1"},
		{Href: "/relative"},
	}
	out := dropSelfLinks(in, "https://acme.com/careers")
	require.Len(t, out, 2)
	assert.Equal(t, "https://acme.com/careers/jobs/1", out[0].Href)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_ReportsProgress(t *testing.T) {
	b := newFakeBrowser(map[string]site{"https://acme.com/careers": {}})
	o, _ := newTestOrchestrator(downCompleter(), b)
	var seen []string
	o.WithProgress(func(done, total int, r CompanyResult) {
		seen = append(seen, fmt.Sprintf("%d/%d %s %s", done, total, r.Company, r.Status))
	})

	_, err := o.Run(context.Background(), dataEngineerRequest("Acme", "Globex"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1/2 Acme no_matches", "2/2 Globex error"}, seen)
}

func TestRunWithProgress_OverridesDefault(t *testing.T) {
	b := newFakeBrowser(map[string]site{"https://acme.com/careers": {}})
	o, _ := newTestOrchestrator(downCompleter(), b)
	defaultCalls, perRun := 0, 0
	o.WithProgress(func(int, int, CompanyResult) { defaultCalls++ })

	_, err := o.RunWithProgress(context.Background(), dataEngineerRequest("Acme"), func(int, int, CompanyResult) { perRun++ })

	require.NoError(t, err)
	assert.Equal(t, 0, defaultCalls)
	assert.Equal(t, 1, perRun)
}
