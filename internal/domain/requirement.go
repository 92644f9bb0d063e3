package domain

// BusinessRequirement is the parsed business description submitted by the
// caller. The orchestrator only reads the entity lists to size the plan;
// everything else is passed through to the generator collaborators opaquely.
type BusinessRequirement struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Forms        []FormEntity      `json:"forms,omitempty"`
	Processes    []ProcessEntity   `json:"processes,omitempty"`
	Approvals    []ApprovalEntity  `json:"approvals,omitempty"`
	Integrations []Integration     `json:"integrations,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

type FormEntity struct {
	Name   string      `json:"name"`
	Fields []FormField `json:"fields,omitempty"`
}

type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

type ProcessEntity struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps,omitempty"`
}

type ApprovalEntity struct {
	Name     string `json:"name"`
	Approver string `json:"approver,omitempty"`
}

type Integration struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}
