package planner

import (
	"testing"

	"github.com/strogmv/forge/internal/domain"
)

func TestBuildCountsForTwoFormsOneProcess(t *testing.T) {
	req := domain.BusinessRequirement{
		Name: "crm",
		Forms: []domain.FormEntity{
			{Name: "Lead", Fields: []domain.FormField{{Name: "email"}}},
			{Name: "Deal"},
		},
		Processes: []domain.ProcessEntity{
			{Name: "Approval", Steps: []string{"submit", "review"}},
		},
	}

	plan := Build(req)

	if got := len(plan.Components); got != 4 {
		t.Fatalf("expected 4 components (2 forms + dashboard + layout), got %d", got)
	}
	if got := len(plan.Endpoints); got != 8 {
		t.Fatalf("expected 8 endpoints (2 forms x 4 verbs), got %d", got)
	}
	if got := len(plan.Schemas); got != 2 {
		t.Fatalf("expected 2 schemas, got %d", got)
	}
	if got := len(plan.Workflows); got != 1 {
		t.Fatalf("expected 1 workflow, got %d", got)
	}
	if got := len(plan.Chatbots); got != 1 {
		t.Fatalf("expected 1 chatbot, got %d", got)
	}
	if err := domain.ValidatePlan(plan); err != nil {
		t.Fatalf("plan has forward references: %v", err)
	}
}

func TestBuildFormComponentsAreTypedForm(t *testing.T) {
	plan := Build(domain.BusinessRequirement{
		Forms: []domain.FormEntity{{Name: "Order"}},
	})
	var formCount int
	for _, c := range plan.Components {
		if c.Type == "form" {
			formCount++
		}
	}
	if formCount != 1 {
		t.Fatalf("expected one form component, got %d", formCount)
	}
}

func TestBuildEmptyRequirementYieldsValidPlan(t *testing.T) {
	plan := Build(domain.BusinessRequirement{})

	// Dashboard, layout and assistant are always planned.
	if got := len(plan.Components); got != 2 {
		t.Fatalf("expected dashboard+layout, got %d components", got)
	}
	if got := len(plan.Chatbots); got != 1 {
		t.Fatalf("expected 1 chatbot, got %d", got)
	}
	if len(plan.Endpoints) != 0 || len(plan.Schemas) != 0 || len(plan.Workflows) != 0 {
		t.Fatalf("expected no form/process derived items")
	}
	if err := domain.ValidatePlan(plan); err != nil {
		t.Fatalf("empty plan must validate: %v", err)
	}
}

func TestBuildSkipsUnnamedEntities(t *testing.T) {
	plan := Build(domain.BusinessRequirement{
		Forms:     []domain.FormEntity{{Name: "   "}},
		Processes: []domain.ProcessEntity{{Name: ""}},
	})
	if len(plan.Schemas) != 0 || len(plan.Workflows) != 0 {
		t.Fatalf("unnamed entities must be dropped, got %d schemas %d workflows",
			len(plan.Schemas), len(plan.Workflows))
	}
}

func TestBuildPriorityOrderingIsFixed(t *testing.T) {
	plan := Build(domain.BusinessRequirement{})
	want := []string{
		"database", "api", "components", "workflows",
		"integrations", "chatbots", "documentation", "deployment",
	}
	if len(plan.Priority) != len(want) {
		t.Fatalf("priority length %d, want %d", len(plan.Priority), len(want))
	}
	for i := range want {
		if plan.Priority[i] != want[i] {
			t.Fatalf("priority[%d] = %s, want %s", i, plan.Priority[i], want[i])
		}
	}
}

func TestComplexityTiers(t *testing.T) {
	fields := func(n int) []domain.FormField {
		out := make([]domain.FormField, n)
		for i := range out {
			out[i] = domain.FormField{Name: "f"}
		}
		return out
	}
	if got := formComplexity(domain.FormEntity{Fields: fields(3)}); got != domain.ComplexityLow {
		t.Fatalf("3 fields = %s, want low", got)
	}
	if got := formComplexity(domain.FormEntity{Fields: fields(7)}); got != domain.ComplexityMedium {
		t.Fatalf("7 fields = %s, want medium", got)
	}
	if got := formComplexity(domain.FormEntity{Fields: fields(11)}); got != domain.ComplexityHigh {
		t.Fatalf("11 fields = %s, want high", got)
	}
}
