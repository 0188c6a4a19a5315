package pipeline

import (
	"context"
	"strings"

	"jobscout/internal/logger"
	"jobscout/internal/platform/eino"
	"jobscout/internal/utils/llmjson"
	"jobscout/prompts"
)

const (
	templatePromptChars    = 1500
	descriptionPromptChars = 500

	// UnchangedNote is the single change reported when the template is returned as-is.
	UnchangedNote = "CV customization unavailable; template returned unchanged"
)

// Customization is a tailored CV and the edits that produced it.
type Customization struct {
	CV      string
	Changes []string
}

// Customizer tailors the CV template to a job posting.
type Customizer struct {
	llm     Completer
	prompts *prompts.Set
	log     *logger.Logger
}

func NewCustomizer(llm Completer, set *prompts.Set) *Customizer {
	return &Customizer{llm: llm, prompts: set, log: logger.New("Customizer")}
}

// Customize never fails outright. On any error it returns the full template
// with UnchangedNote as the only change.
func (c *Customizer) Customize(ctx context.Context, job JobListing, company, template string) Outcome[Customization] {
	unchanged := Customization{CV: template, Changes: []string{UnchangedNote}}

	system, user, err := prompts.Render(ctx, c.prompts.CVCustomization, map[string]any{
		"title":       job.Title,
		"company":     company,
		"location":    job.Location,
		"description": truncateRunes(job.Description, descriptionPromptChars),
		"template":    truncateRunes(template, templatePromptChars),
	})
	if err != nil {
		return fallback(unchanged, err)
	}
	raw, err := c.llm.Complete(ctx, system, user, eino.Options{Temperature: 0.7, MaxTokens: 2000})
	if err != nil {
		c.log.LogWarnf("customization for %q failed: %v", job.Title, err)
		return fallback(unchanged, &ServiceError{Message: "cv customization", Cause: err})
	}

	var payload struct {
		CustomizedCV string   `json:"customizedCv"`
		Changes      []string `json:"changes"`
	}
	err = llmjson.ExtractWhere(raw, &payload, func() bool { return payload.CustomizedCV != "" || len(payload.Changes) > 0 })
	if err != nil {
		return fallback(unchanged, &ParseError{Stage: "cv customization", Cause: err})
	}
	if strings.TrimSpace(payload.CustomizedCV) == "" {
		return fallback(unchanged, &ParseError{Stage: "cv customization", Message: "customizedCv is empty"})
	}

	changes := make([]string, 0, len(payload.Changes))
	for _, ch := range payload.Changes {
		if ch = strings.TrimSpace(ch); ch != "" {
			changes = append(changes, ch)
		}
	}
	return ok(Customization{CV: payload.CustomizedCV, Changes: changes})
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
