package domain

import (
	"fmt"
	"time"
)

// Complexity is the estimated effort tier of a plan item.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// GenerationPlan is the ordered work breakdown for one run. It is built once
// by the planner and read-only afterward.
type GenerationPlan struct {
	Components []ComponentPlan   `json:"components"`
	Endpoints  []APIEndpointPlan `json:"endpoints"`
	Schemas    []SchemaPlan      `json:"schemas"`
	Workflows  []WorkflowPlan    `json:"workflows"`
	Chatbots   []ChatbotPlan     `json:"chatbots"`

	// Priority is the fixed category ordering later stages assume:
	// database -> api -> components -> workflows -> integrations ->
	// chatbots -> documentation -> deployment.
	Priority []string `json:"priority"`

	Estimated time.Duration `json:"estimated"`
}

type ComponentPlan struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Complexity   Complexity    `json:"complexity"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Estimated    time.Duration `json:"estimated"`
}

type APIEndpointPlan struct {
	Name         string        `json:"name"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	Complexity   Complexity    `json:"complexity"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Estimated    time.Duration `json:"estimated"`
}

type SchemaPlan struct {
	Name       string        `json:"name"`
	Table      string        `json:"table"`
	Complexity Complexity    `json:"complexity"`
	Estimated  time.Duration `json:"estimated"`
}

type WorkflowPlan struct {
	Name         string        `json:"name"`
	Complexity   Complexity    `json:"complexity"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Estimated    time.Duration `json:"estimated"`
}

type ChatbotPlan struct {
	Name       string        `json:"name"`
	Purpose    string        `json:"purpose,omitempty"`
	Complexity Complexity    `json:"complexity"`
	Estimated  time.Duration `json:"estimated"`
}

// Empty reports whether the plan carries no work items at all. An empty plan
// is still valid; the executor walks every stage and completes immediately.
func (p *GenerationPlan) Empty() bool {
	return len(p.Components) == 0 && len(p.Endpoints) == 0 &&
		len(p.Schemas) == 0 && len(p.Workflows) == 0 && len(p.Chatbots) == 0
}

// ItemCount returns the total number of planned work items.
func (p *GenerationPlan) ItemCount() int {
	return len(p.Components) + len(p.Endpoints) + len(p.Schemas) +
		len(p.Workflows) + len(p.Chatbots)
}

// ValidatePlan checks the no-forward-reference invariant: every declared
// dependency must name an item that appears earlier in the priority ordering.
// Schemas come first and declare no dependencies; endpoints may depend on
// schemas; components on schemas and endpoints; workflows on any of those.
func ValidatePlan(p *GenerationPlan) error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	seen := map[string]bool{}
	for _, s := range p.Schemas {
		seen[s.Name] = true
	}
	for _, e := range p.Endpoints {
		for _, dep := range e.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("endpoint %s: forward reference to %q", e.Name, dep)
			}
		}
	}
	for _, e := range p.Endpoints {
		seen[e.Name] = true
	}
	for _, c := range p.Components {
		for _, dep := range c.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("component %s: forward reference to %q", c.Name, dep)
			}
		}
	}
	for _, c := range p.Components {
		seen[c.Name] = true
	}
	for _, w := range p.Workflows {
		for _, dep := range w.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("workflow %s: forward reference to %q", w.Name, dep)
			}
		}
	}
	return nil
}
