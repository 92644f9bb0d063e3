package report

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/strogmv/forge/internal/domain"
)

// Generator generates PDF run reports.
type Generator struct{}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateRunReport renders the terminal state of an orchestration run as a
// PDF document. The deployment URL, when present, is embedded as a QR code.
func (g *Generator) GenerateRunReport(res *domain.OrchestrationResult) ([]byte, error) {
	m := maroto.New()

	outcome := "COMPLETED"
	if !res.Success {
		outcome = "FAILED"
	}

	// Header
	m.AddRows(
		row.New(20).Add(
			col.New(12).Add(
				text.New("GENERATION RUN REPORT", props.Text{
					Align: align.Center,
					Size:  20,
					Style: fontstyle.Bold,
				}),
			),
		),
		row.New(10).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Job %s — %s", res.JobID, outcome), props.Text{
					Align: align.Center,
					Size:  12,
				}),
			),
		),
	)

	// Metrics Section
	m.AddRows(
		row.New(15).Add(
			col.New(12).Add(
				text.New("METRICS", props.Text{Style: fontstyle.Bold, Top: 5}),
			),
		),
		metricRow("Total duration", res.Metrics.TotalDuration.String()),
		metricRow("Components", fmt.Sprintf("%d", res.Metrics.ComponentCount)),
		metricRow("API endpoints", fmt.Sprintf("%d", res.Metrics.EndpointCount)),
		metricRow("Database schemas", fmt.Sprintf("%d", res.Metrics.SchemaCount)),
		metricRow("Workflows", fmt.Sprintf("%d", res.Metrics.WorkflowCount)),
		metricRow("Generated lines", fmt.Sprintf("%d", res.Metrics.GeneratedLines)),
	)

	// Stage Timings Table
	m.AddRows(
		row.New(15).Add(
			col.New(12).Add(
				text.New("STAGES", props.Text{Style: fontstyle.Bold, Top: 5}),
			),
		),
	)

	for _, stage := range domain.StageSequence {
		d, ok := res.Metrics.StageDurations[stage]
		if !ok {
			continue
		}
		m.AddRows(
			row.New(8).Add(
				col.New(6).Add(text.New(stage.String())),
				col.New(6).Add(text.New(d.String())),
			),
		)
	}

	// Errors Section
	if len(res.Errors) > 0 {
		m.AddRows(
			row.New(15).Add(
				col.New(12).Add(
					text.New("ERRORS", props.Text{Style: fontstyle.Bold, Top: 5}),
				),
			),
		)
		for _, e := range res.Errors {
			m.AddRows(
				row.New(8).Add(
					col.New(12).Add(text.New(e)),
				),
			)
		}
	}

	// QR Code for the Deployed Application
	if res.DeploymentURL != "" {
		m.AddRows(
			row.New(40).Add(
				col.New(4).Add(
					code.NewQr(res.DeploymentURL, props.Rect{
						Percent: 100,
					}),
				),
				col.New(8).Add(
					text.New("Scan to open the deployed application.", props.Text{
						Top: 15,
					}),
				),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}

func metricRow(label, value string) core.Row {
	return row.New(8).Add(
		col.New(6).Add(text.New(label)),
		col.New(6).Add(text.New(value, props.Text{Style: fontstyle.Bold})),
	)
}
