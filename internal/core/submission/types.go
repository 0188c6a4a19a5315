package submission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"jobscout/internal/utils/parser"
)

// Status is the intake state of a submission. Pipeline runs never change
// it; run progress lives in the job store. Later states are set by
// operators directly in the database.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

const (
	FrequencyOnce   = "once"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Submission is one stored job-search request.
type Submission struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Companies    []string  `json:"companies"`
	Roles        []string  `json:"roles"`
	Seniority    string    `json:"seniority"`
	Cities       []string  `json:"cities"`
	VisaRequired bool      `json:"visaRequired"`
	Frequency    string    `json:"frequency"`
	TemplatePath string    `json:"templatePath"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CommaList decodes from either a JSON array or a comma-separated string.
type CommaList []string

func (l *CommaList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = parser.ParseCommaList(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*l = parser.ParseCommaList(strings.Join(items, ","))
	return nil
}

// CreateRequest is the intake body for POST /v1/submissions.
type CreateRequest struct {
	Email        string    `json:"email" validate:"required,email"`
	Companies    CommaList `json:"companies" validate:"required,min=1"`
	Roles        CommaList `json:"roles" validate:"required,min=1"`
	Seniority    string    `json:"seniority" validate:"max=64"`
	Cities       CommaList `json:"cities"`
	VisaRequired bool      `json:"visaRequired"`
	Frequency    string    `json:"frequency" validate:"omitempty,oneof=once daily weekly"`
	TemplatePath string    `json:"templatePath" validate:"max=512"`
}

// ListQuery filters GET /v1/submissions.
type ListQuery struct {
	Status *string `form:"status"`
	Limit  int     `form:"limit"`
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var validate = validator.New()

// Normalize trims free-text fields, applies defaults and validates.
func (r *CreateRequest) Normalize() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Seniority = strings.TrimSpace(r.Seniority)
	r.TemplatePath = strings.TrimSpace(r.TemplatePath)
	r.Frequency = strings.ToLower(strings.TrimSpace(r.Frequency))
	if r.Frequency == "" {
		r.Frequency = FrequencyOnce
	}
	if r.Cities == nil {
		r.Cities = CommaList{}
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %s validation", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// Submission builds the pending record for a validated request.
func (r CreateRequest) Submission(id string, now time.Time) Submission {
	return Submission{
		ID:           id,
		Email:        r.Email,
		Companies:    []string(r.Companies),
		Roles:        []string(r.Roles),
		Seniority:    r.Seniority,
		Cities:       []string(r.Cities),
		VisaRequired: r.VisaRequired,
		Frequency:    r.Frequency,
		TemplatePath: r.TemplatePath,
		Status:       StatusPending,
		CreatedAt:    now,
	}
}

func (q ListQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultListLimit
	case q.Limit > maxListLimit:
		return maxListLimit
	}
	return q.Limit
}
