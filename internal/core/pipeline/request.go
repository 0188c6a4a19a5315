package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"jobscout/internal/config"
)

// Request is one pipeline run. Template is the already-loaded CV text.
type Request struct {
	Email        string   `json:"email" validate:"required,email"`
	Companies    []string `json:"companies" validate:"required,min=1"`
	Roles        []string `json:"roles" validate:"required,min=1"`
	Seniority    string   `json:"seniority"`
	Cities       []string `json:"cities"`
	VisaRequired bool     `json:"visaRequired"`
	Template     string   `json:"-" validate:"required"`
}

var validate = validator.New()

// Validate trims list fields in place and reports the first problem as a
// *ValidationError.
func (r *Request) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Companies = trimList(r.Companies)
	r.Roles = trimList(r.Roles)
	r.Cities = trimList(r.Cities)
	r.Seniority = strings.TrimSpace(r.Seniority)
	if strings.TrimSpace(r.Template) == "" {
		r.Template = ""
	}

	if err := validate.Struct(r); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return &ValidationError{Field: strings.ToLower(f.Field()), Message: validationMessage(f.Tag())}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func validationMessage(tag string) string {
	switch tag {
	case "required", "min":
		return "must not be empty"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + tag + " check"
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Options bounds a run in time and size.
type Options struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	JobSettleDelay    time.Duration
	CompanyBudget     time.Duration
	CourtesyDelay     time.Duration
	RunTimeout        time.Duration
	CompanyCap        int
	CandidateCap      int
	MatchCap          int
	BodyChars         int
}

func DefaultOptions() Options {
	return Options{
		NavigationTimeout: 15 * time.Second,
		SettleDelay:       2 * time.Second,
		JobSettleDelay:    time.Second,
		CompanyBudget:     60 * time.Second,
		CourtesyDelay:     1500 * time.Millisecond,
		RunTimeout:        5 * time.Minute,
		CompanyCap:        defaultCompanyCap,
		CandidateCap:      5,
		MatchCap:          2,
		BodyChars:         2000,
	}
}

// OptionsFromLimits overlays configured limits on the defaults. Zero values
// keep the default.
func OptionsFromLimits(l config.Limits) Options {
	o := DefaultOptions()
	setDuration(&o.NavigationTimeout, l.NavigationTimeout)
	setDuration(&o.SettleDelay, l.SettleDelay)
	setDuration(&o.JobSettleDelay, l.JobSettleDelay)
	setDuration(&o.CompanyBudget, l.CompanyBudget)
	setDuration(&o.CourtesyDelay, l.CourtesyDelay)
	setDuration(&o.RunTimeout, l.RunTimeout)
	setInt(&o.CompanyCap, l.CompanyCap)
	setInt(&o.CandidateCap, l.CandidateCap)
	setInt(&o.MatchCap, l.MatchCap)
	return o
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
