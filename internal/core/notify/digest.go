package notify

import (
	"fmt"
	"strings"

	"jobscout/internal/core/match"
	"jobscout/internal/core/pipeline"
)

// Notification is everything needed to tell a user about one run.
type Notification struct {
	Email    string                   `json:"email"`
	Criteria match.SearchCriteria     `json:"criteria"`
	Results  []pipeline.CompanyResult `json:"results"`
}

// Digest is the rendered plain-text message.
type Digest struct {
	Subject   string
	Text      string
	TotalJobs int
}

// Successful returns only the companies with at least one accepted job.
func (n Notification) Successful() []pipeline.CompanyResult {
	out := []pipeline.CompanyResult{}
	for _, r := range n.Results {
		if r.Status == pipeline.StatusSuccess && len(r.Jobs) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Render builds the text digest. Companies without matches are left out.
func Render(n Notification) Digest {
	results := n.Successful()
	total := 0
	for _, r := range results {
		total += len(r.Jobs)
	}

	var b strings.Builder
	b.WriteString("YOUR JOB SEARCH RESULTS\n")
	b.WriteString("=======================\n\n")
	fmt.Fprintf(&b, "We found %d matching %s for you!\n\n", total, plural(total, "job", "jobs"))

	b.WriteString("YOUR SEARCH CRITERIA\n")
	b.WriteString("--------------------\n")
	fmt.Fprintf(&b, "Target Roles: %s\n", strings.Join(n.Criteria.Roles, ", "))
	fmt.Fprintf(&b, "Seniority Level: %s\n", orAny(n.Criteria.Seniority))
	fmt.Fprintf(&b, "Target Cities: %s\n", orAny(strings.Join(n.Criteria.Cities, ", ")))
	visa := "Not required"
	if n.Criteria.VisaRequired {
		visa = "Required"
	}
	fmt.Fprintf(&b, "Visa Sponsorship: %s\n\n", visa)

	b.WriteString("YOUR JOB MATCHES\n")
	b.WriteString("----------------\n")

	for _, r := range results {
		fmt.Fprintf(&b, "\n%s\n%s\n", r.Company, strings.Repeat("=", len([]rune(r.Company))))
		fmt.Fprintf(&b, "Verified: we visited their careers page and found %d matching %s\n",
			len(r.Jobs), plural(len(r.Jobs), "job", "jobs"))
		fmt.Fprintf(&b, "Careers Page: %s\n\n", r.CareersURL)

		for _, m := range r.Jobs {
			fmt.Fprintf(&b, "  %s\n", m.Job.Title)
			location := m.Job.Location
			if location != "" && !m.Job.LocationConfirmed {
				location += " (unconfirmed)"
			}
			fmt.Fprintf(&b, "  Location: %s\n", orAny(location))
			fmt.Fprintf(&b, "  %s\n\n", m.Job.URL)
			if m.Job.Description != "" {
				fmt.Fprintf(&b, "  %s\n\n", m.Job.Description)
			}
			b.WriteString("  CUSTOMIZED CV FOR THIS ROLE:\n")
			fmt.Fprintf(&b, "  %s\n", strings.Repeat("-", 40))
			fmt.Fprintf(&b, "  %s\n\n", indent(m.CustomizedCV, "  "))
			b.WriteString("  Key Changes:\n")
			for _, c := range m.CVChanges {
				fmt.Fprintf(&b, "    * %s\n", c)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\n---\nThis email was sent to %s\nGenerated by jobscout\n", n.Email)

	return Digest{
		Subject:   fmt.Sprintf("Your Job Search Results - %d Matches Found", total),
		Text:      b.String(),
		TotalJobs: total,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func orAny(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Any"
	}
	return s
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n"+prefix)
}
