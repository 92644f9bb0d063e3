// Package planner turns a business requirement into a generation plan.
// Building is pure: no I/O, no failure modes. Malformed or empty input
// yields an empty but valid plan the executor can still walk.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/strogmv/forge/internal/domain"
)

// endpointVerbs are the HTTP verbs planned per form entity.
var endpointVerbs = []string{"POST", "GET", "PUT", "DELETE"}

// categoryPriority is the fixed ordering later stages assume: API generation
// reads schema field names, components read endpoint shapes, and so on.
var categoryPriority = []string{
	"database", "api", "components", "workflows",
	"integrations", "chatbots", "documentation", "deployment",
}

// estimates per complexity tier.
var estimates = map[domain.Complexity]time.Duration{
	domain.ComplexityLow:    30 * time.Second,
	domain.ComplexityMedium: 60 * time.Second,
	domain.ComplexityHigh:   2 * time.Minute,
}

// Build produces the generation plan for a requirement.
func Build(req domain.BusinessRequirement) *domain.GenerationPlan {
	plan := &domain.GenerationPlan{
		Priority: append([]string{}, categoryPriority...),
	}

	for _, form := range req.Forms {
		name := sanitize(form.Name)
		if name == "" {
			continue
		}
		tier := formComplexity(form)

		plan.Schemas = append(plan.Schemas, domain.SchemaPlan{
			Name:       name + "_schema",
			Table:      strings.ToLower(name),
			Complexity: tier,
			Estimated:  estimates[tier],
		})
		for _, verb := range endpointVerbs {
			plan.Endpoints = append(plan.Endpoints, domain.APIEndpointPlan{
				Name:         fmt.Sprintf("%s_%s", strings.ToLower(verb), name),
				Method:       verb,
				Path:         "/api/" + strings.ToLower(name),
				Complexity:   tier,
				Dependencies: []string{name + "_schema"},
				Estimated:    estimates[tier],
			})
		}
		plan.Components = append(plan.Components, domain.ComponentPlan{
			Name:         name + "_form",
			Type:         "form",
			Complexity:   tier,
			Dependencies: []string{name + "_schema"},
			Estimated:    estimates[tier],
		})
	}

	for _, proc := range req.Processes {
		name := sanitize(proc.Name)
		if name == "" {
			continue
		}
		tier := processComplexity(proc)
		plan.Workflows = append(plan.Workflows, domain.WorkflowPlan{
			Name:       name + "_workflow",
			Complexity: tier,
			Estimated:  estimates[tier],
		})
	}

	// Every application gets a dashboard/layout pair and one assistant.
	plan.Components = append(plan.Components,
		domain.ComponentPlan{
			Name:       "dashboard",
			Type:       "dashboard",
			Complexity: domain.ComplexityMedium,
			Estimated:  estimates[domain.ComplexityMedium],
		},
		domain.ComponentPlan{
			Name:       "layout",
			Type:       "layout",
			Complexity: domain.ComplexityLow,
			Estimated:  estimates[domain.ComplexityLow],
		},
	)
	plan.Chatbots = append(plan.Chatbots, domain.ChatbotPlan{
		Name:       "assistant",
		Purpose:    "general",
		Complexity: domain.ComplexityMedium,
		Estimated:  estimates[domain.ComplexityMedium],
	})

	for _, c := range plan.Components {
		plan.Estimated += c.Estimated
	}
	for _, e := range plan.Endpoints {
		plan.Estimated += e.Estimated
	}
	for _, s := range plan.Schemas {
		plan.Estimated += s.Estimated
	}
	for _, w := range plan.Workflows {
		plan.Estimated += w.Estimated
	}
	for _, b := range plan.Chatbots {
		plan.Estimated += b.Estimated
	}

	return plan
}

func formComplexity(form domain.FormEntity) domain.Complexity {
	switch {
	case len(form.Fields) > 10:
		return domain.ComplexityHigh
	case len(form.Fields) > 5:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}

func processComplexity(proc domain.ProcessEntity) domain.Complexity {
	switch {
	case len(proc.Steps) > 6:
		return domain.ComplexityHigh
	case len(proc.Steps) > 3:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}

// sanitize normalizes an entity name into an identifier-safe token.
func sanitize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
