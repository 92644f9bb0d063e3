// Package static provides an offline generator used when no completion
// service is configured. Output is skeletal but structurally valid, which
// keeps local development and demos working end to end.
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(ctx context.Context, req domain.BusinessRequirement, opts port.GenerateOptions) (domain.ArtifactBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := opts.Component
	switch opts.Category {
	case domain.CategoryDatabase:
		return domain.ArtifactBundle{
			name + ".sql": fmt.Sprintf("-- table for %s\nCREATE TABLE IF NOT EXISTS %s (\n  id UUID PRIMARY KEY,\n  created_at TIMESTAMPTZ NOT NULL DEFAULT now()\n);\n", name, strings.TrimSuffix(name, "_schema")),
		}, nil
	case domain.CategoryAPI:
		return domain.ArtifactBundle{
			name + ".ts": fmt.Sprintf("// handler %s\nexport async function handler(req, res) {\n  res.status(200).json({ ok: true });\n}\n", name),
		}, nil
	case domain.CategoryComponents:
		return domain.ArtifactBundle{
			pascal(name) + ".tsx": fmt.Sprintf("export function %s() {\n  return <div>%s</div>;\n}\n", pascal(name), name),
		}, nil
	case domain.CategoryWorkflows:
		return domain.ArtifactBundle{
			name + ".yaml": fmt.Sprintf("name: %s\nsteps:\n  - start\n  - finish\n", name),
		}, nil
	case domain.CategoryChatbots:
		return domain.ArtifactBundle{
			name + ".json": fmt.Sprintf("{\n  \"name\": %q,\n  \"greeting\": \"How can I help?\"\n}\n", name),
		}, nil
	case domain.CategoryTests:
		return domain.ArtifactBundle{
			"smoke.test.ts": "test('application boots', () => {\n  expect(true).toBe(true);\n});\n",
		}, nil
	case domain.CategoryDocumentation:
		return domain.ArtifactBundle{
			"README.md": fmt.Sprintf("# %s\n\n%s\n", req.Name, req.Description),
		}, nil
	}
	return nil, fmt.Errorf("unknown category %q", opts.Category)
}

// Generators builds a full GeneratorSet backed by the offline generator.
func Generators() port.GeneratorSet {
	g := New()
	return port.GeneratorSet{
		domain.CategoryComponents:    g,
		domain.CategoryAPI:           g,
		domain.CategoryDatabase:      g,
		domain.CategoryWorkflows:     g,
		domain.CategoryChatbots:      g,
		domain.CategoryTests:         g,
		domain.CategoryDocumentation: g,
	}
}

func pascal(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
