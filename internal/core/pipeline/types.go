package pipeline

import (
	"context"
	"time"

	"jobscout/internal/core/match"
	"jobscout/internal/platform/eino"
)

// Completer is the completion service as seen by the pipeline.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts eino.Options) (string, error)
}

// Launcher starts a browser session for one run.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a live browser session. Each NewPage call gets its own
// isolated context.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Healthy() bool
	Close() error
}

// Page is one tab in its own browsing context. Close releases both.
type Page interface {
	Goto(ctx context.Context, url string) error
	Settle(ctx context.Context, d time.Duration) error
	SubmitSearch(ctx context.Context, selectors []string, term string) error
	Anchors(ctx context.Context) ([]match.Anchor, error)
	Snapshot(ctx context.Context, maxBody int) (match.JobPageSnapshot, error)
	URL() string
	Close() error
}

// AnchorSource fetches anchors without a browser. Used when DOM
// evaluation fails on a careers page.
type AnchorSource interface {
	StaticAnchors(ctx context.Context, pageURL string) ([]match.Anchor, error)
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CompanyTarget is a company with its resolved careers page.
type CompanyTarget struct {
	Name       string     `json:"company"`
	CareersURL string     `json:"careersUrl"`
	Confidence Confidence `json:"confidence"`
}

// JobListing describes an accepted posting.
type JobListing struct {
	Title             string `json:"title"`
	Location          string `json:"location"`
	LocationConfirmed bool   `json:"locationConfirmed"`
	Description       string `json:"description"`
	URL               string `json:"url"`
}

// JobMatch is an accepted posting with its tailored CV.
type JobMatch struct {
	Job          JobListing `json:"job"`
	CustomizedCV string     `json:"customizedCv"`
	CVChanges    []string   `json:"cvChanges"`
	MatchReasons []string   `json:"matchReasons,omitempty"`
}

type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoMatches Status = "no_matches"
	StatusError     Status = "error"
)

// CompanyResult is the outcome for one company. Status is success iff Jobs
// is non-empty.
type CompanyResult struct {
	Company    string     `json:"company"`
	CareersURL string     `json:"careersUrl"`
	Status     Status     `json:"status"`
	Message    string     `json:"message,omitempty"`
	Jobs       []JobMatch `json:"jobs"`
}

// RunSummary is the run-level output handed to the notifier.
type RunSummary struct {
	Results           []CompanyResult      `json:"results"`
	Criteria          match.SearchCriteria `json:"criteria"`
	TotalCompanies    int                  `json:"totalCompanies"`
	SuccessfulMatches int                  `json:"successfulMatches"`
	NoMatches         int                  `json:"noMatches"`
	Errors            int                  `json:"errors"`
	ProcessedAt       time.Time            `json:"processedAt"`
}

// TotalJobs counts accepted postings across companies.
func (s *RunSummary) TotalJobs() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Jobs)
	}
	return n
}

// Accumulator collects one CompanyResult per target, in target order.
type Accumulator struct {
	targets []CompanyTarget
	results []*CompanyResult
}

func NewAccumulator(targets []CompanyTarget) *Accumulator {
	return &Accumulator{targets: targets, results: make([]*CompanyResult, len(targets))}
}

// Record stores the result for target i. Status is derived from Jobs so a
// result can never claim success without matches.
func (a *Accumulator) Record(i int, r CompanyResult) {
	if i < 0 || i >= len(a.targets) {
		return
	}
	if r.Jobs == nil {
		r.Jobs = []JobMatch{}
	}
	switch {
	case len(r.Jobs) > 0:
		r.Status = StatusSuccess
	case r.Status == StatusSuccess || r.Status == "":
		r.Status = StatusNoMatches
	}
	a.results[i] = &r
}

// Result returns the recorded result for target i.
func (a *Accumulator) Result(i int) (CompanyResult, bool) {
	if i < 0 || i >= len(a.results) || a.results[i] == nil {
		return CompanyResult{}, false
	}
	return *a.results[i], true
}

// FailRemaining records an error for every target from index i on that has
// no result yet.
func (a *Accumulator) FailRemaining(from int, message string) {
	for i := max(from, 0); i < len(a.targets); i++ {
		if a.results[i] == nil {
			t := a.targets[i]
			a.Record(i, CompanyResult{Company: t.Name, CareersURL: t.CareersURL, Status: StatusError, Message: message})
		}
	}
}

// Summary finalizes the run. Targets without a result are reported as errors.
func (a *Accumulator) Summary(criteria match.SearchCriteria, at time.Time) *RunSummary {
	a.FailRemaining(0, "company was not processed")
	s := &RunSummary{
		Results:        make([]CompanyResult, 0, len(a.results)),
		Criteria:       criteria,
		TotalCompanies: len(a.targets),
		ProcessedAt:    at.UTC(),
	}
	for _, r := range a.results {
		s.Results = append(s.Results, *r)
		switch r.Status {
		case StatusSuccess:
			s.SuccessfulMatches++
		case StatusNoMatches:
			s.NoMatches++
		default:
			s.Errors++
		}
	}
	return s
}
