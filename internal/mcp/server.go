// Package mcp exposes the orchestrator to MCP clients over stdio. Three
// tools cover the lifecycle: plan a requirement, run a generation and check
// a job.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/planner"
	"github.com/strogmv/forge/internal/requirement"
	"github.com/strogmv/forge/internal/service"
)

const version = "1.0.0"

// Report is the unified response structure returned by every tool.
type Report struct {
	Status      string            `json:"status"`
	Summary     []string          `json:"summary,omitempty"`
	NextActions []string          `json:"next_actions,omitempty"`
	Artifacts   map[string]string `json:"artifacts,omitempty"`
}

func (r *Report) ToJSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}

func parseRequirement(src string) (domain.BusinessRequirement, error) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "{") {
		return requirement.DecodeJSON([]byte(src))
	}
	return requirement.DecodeCUE([]byte(src))
}

// NewServer builds the MCP server with the forge tool set registered.
func NewServer(svc *service.Orchestration) *server.MCPServer {
	s := server.NewMCPServer(
		"Forge MCP Server",
		version,
		server.WithLogging(),
	)
	registerTools(s, svc)
	return s
}

func registerTools(s *server.MCPServer, svc *service.Orchestration) {
	s.AddTool(mcp.NewTool("forge_plan",
		mcp.WithDescription("Build the generation plan for a business requirement without running it. Accepts JSON or CUE."),
		mcp.WithString("requirement", mcp.Required()),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := parseRequirement(mcp.ParseString(request, "requirement", ""))
		if err != nil {
			return mcp.NewToolResultText((&Report{
				Status:      "Invalid",
				Summary:     []string{"Requirement could not be parsed."},
				NextActions: []string{"Fix the requirement source and retry forge_plan"},
				Artifacts:   map[string]string{"error": err.Error()},
			}).ToJSON()), nil
		}
		plan := planner.Build(req)
		b, _ := json.MarshalIndent(plan, "", "  ")
		return mcp.NewToolResultText(string(b)), nil
	})

	s.AddTool(mcp.NewTool("forge_generate",
		mcp.WithDescription("Run the full generation pipeline for a requirement and return the result summary."),
		mcp.WithString("requirement", mcp.Required()),
		mcp.WithBoolean("parallel", mcp.Description("Generate independent plan items concurrently (default true).")),
		mcp.WithBoolean("generate_tests", mcp.Description("Include the testing stage output (default false).")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := parseRequirement(mcp.ParseString(request, "requirement", ""))
		if err != nil {
			return mcp.NewToolResultText((&Report{
				Status:    "Invalid",
				Summary:   []string{"Requirement could not be parsed."},
				Artifacts: map[string]string{"error": err.Error()},
			}).ToJSON()), nil
		}

		opts := domain.DefaultOptions()
		opts.Parallel = mcp.ParseBoolean(request, "parallel", true)
		opts.GenerateTests = mcp.ParseBoolean(request, "generate_tests", false)

		res, err := svc.Execute(ctx, req, opts)
		if err != nil {
			return mcp.NewToolResultText((&Report{
				Status:    "Failed",
				Summary:   []string{"Run could not be started."},
				Artifacts: map[string]string{"error": err.Error()},
			}).ToJSON()), nil
		}

		status := "Completed"
		if !res.Success {
			status = "Failed"
		}
		return mcp.NewToolResultText((&Report{
			Status: status,
			Summary: []string{
				fmt.Sprintf("Job %s finished in %s.", res.JobID, res.Metrics.TotalDuration),
				fmt.Sprintf("%d components, %d endpoints, %d schemas, %d generated lines.",
					res.Metrics.ComponentCount, res.Metrics.EndpointCount,
					res.Metrics.SchemaCount, res.Metrics.GeneratedLines),
			},
			Artifacts: map[string]string{"job_id": res.JobID},
		}).ToJSON()), nil
	})

	s.AddTool(mcp.NewTool("forge_status",
		mcp.WithDescription("Report the state of a generation job by id."),
		mcp.WithString("job_id", mcp.Required()),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := strings.TrimSpace(mcp.ParseString(request, "job_id", ""))
		if jobID == "" {
			return mcp.NewToolResultText(`{"status":"invalid","message":"job_id is required"}`), nil
		}
		state, err := svc.Status(ctx, jobID)
		if err != nil {
			return mcp.NewToolResultText((&Report{
				Status:    "Unknown",
				Summary:   []string{fmt.Sprintf("No run found for job %s.", jobID)},
				Artifacts: map[string]string{"error": err.Error()},
			}).ToJSON()), nil
		}
		if state.Running {
			return mcp.NewToolResultText((&Report{
				Status:  "Running",
				Summary: []string{fmt.Sprintf("Job %s is still in progress.", jobID)},
			}).ToJSON()), nil
		}
		b, _ := json.MarshalIndent(state.Result, "", "  ")
		return mcp.NewToolResultText(string(b)), nil
	})
}

// Run serves the tool set over stdio until the client disconnects.
func Run(svc *service.Orchestration) {
	if err := server.ServeStdio(NewServer(svc)); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}
