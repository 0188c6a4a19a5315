package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Set holds the chat templates used by the discovery pipeline. Every
// template produces one system and one user message.
type Set struct {
	CompanyExpansion prompt.ChatTemplate
	CareersURL       prompt.ChatTemplate
	RoleExpansion    prompt.ChatTemplate
	CVCustomization  prompt.ChatTemplate
}

func New() *Set {
	return &Set{
		CompanyExpansion: companyExpansionTemplate(),
		CareersURL:       careersURLTemplate(),
		RoleExpansion:    roleExpansionTemplate(),
		CVCustomization:  cvCustomizationTemplate(),
	}
}

// Render formats tmpl and splits the result into system and user text.
func Render(ctx context.Context, tmpl prompt.ChatTemplate, vars map[string]any) (string, string, error) {
	msgs, err := tmpl.Format(ctx, vars)
	if err != nil {
		return "", "", fmt.Errorf("format prompt: %w", err)
	}
	var system, user []string
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			system = append(system, m.Content)
		default:
			user = append(user, m.Content)
		}
	}
	return strings.Join(system, "\n\n"), strings.Join(user, "\n\n"), nil
}

func companyExpansionTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`# Your Role
You are a job search expert who knows which companies hire for which roles.

# Critical Requirements
1. Return ONLY valid JSON, no prose and no markdown fences
2. Suggest real companies only, never the ones the user already listed
3. Order suggestions from most to least relevant

# Output Schema
{{"companies": ["Company 1", "Company 2"]}}`),
		schema.UserMessage(`**Companies the candidate likes**: {companies}
**Target roles**: {roles}

Suggest {count} similar companies that hire for these roles. Return ONLY the JSON object.`),
	)
}

func careersURLTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`# Your Role
You are a helpful assistant that knows where companies publish their open positions.

# Critical Requirements
1. Return ONLY valid JSON, no prose and no markdown fences
2. "careersUrl" MUST be an absolute https URL
3. "confidence" MUST be one of "high", "medium", "low"
4. Prefer the company's own careers page over job boards

# Output Schema
{{"careersUrl": "https://...", "confidence": "high"}}`),
		schema.UserMessage(`What is the careers/jobs page URL for **{company}**? Return ONLY the JSON object.`),
	)
}

func roleExpansionTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`You generate alternative job titles recruiters use for the same work.
Return ONLY valid JSON: {{"expandedRoles": ["role 1", "role 2"]}}`),
		schema.UserMessage(`Generate {count} similar role titles for: {roles}`),
	)
}

func cvCustomizationTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(`# Your Role
You are a professional CV writer.

# Your Task
Rewrite the candidate's CV summary and emphasis for one specific job.

# Critical Requirements
1. Preserve the CV's structure and section order
2. NEVER invent employers, degrees, dates or skills the CV does not show
3. Return ONLY valid JSON, no prose and no markdown fences
4. "changes" lists each edit you made as a short sentence

# Output Schema
{{"customizedCv": "Full customized CV text", "changes": ["change 1", "change 2"]}}`),
		schema.UserMessage(`**Job**: {title} at {company}
**Location**: {location}
**Description**:
{description}

**Original CV**:
{template}

Return ONLY the JSON object.`),
	)
}
