package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strogmv/forge/internal/app"
	"github.com/strogmv/forge/internal/config"
	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/mcp"
	"github.com/strogmv/forge/internal/pkg/logger"
	"github.com/strogmv/forge/internal/planner"
	"github.com/strogmv/forge/internal/pkg/telemetry"
	"github.com/strogmv/forge/internal/requirement"
	forgehttp "github.com/strogmv/forge/internal/transport/http"
	"github.com/strogmv/forge/internal/transport/ws"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		runServe()
	case "run":
		runLocal(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "plan":
		runPlan(os.Args[2:])
	case "mcp":
		runMCP()
	case "version":
		fmt.Printf("forge v%s\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Forge — Generation Orchestrator v%s\n", version)
	fmt.Println("\nUsage:")
	fmt.Println("  forge serve    Start the orchestration API and progress websocket")
	fmt.Println("  forge run      Run one generation locally (-f requirement.cue|.json)")
	fmt.Println("  forge plan     Print the generation plan without running it")
	fmt.Println("  forge watch    Follow a job's live progress (-job <id> [-addr host:port])")
	fmt.Println("  forge mcp      Serve the orchestrator tools over MCP stdio")
	fmt.Println("  forge version  Print the version")
}

func runServe() {
	log := logger.Init(slog.LevelInfo)
	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "forge")
	if err != nil {
		log.Error("telemetry setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("trace shutdown failed", slog.String("error", err.Error()))
		}
	}()

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("container init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer container.Close()

	router := forgehttp.NewRouter(
		forgehttp.NewHandler(container.SvcOrchestration),
		ws.NewServer(container.Hub, log),
		forgehttp.RouterConfig{
			AllowedOrigins: container.CORSOrigins(),
			APIKeyHash:     cfg.APIKeyHash,
		},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("forge listening", slog.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// localFlags are the run/plan flags shared by the offline commands.
func localFlags(fs *flag.FlagSet, args []string) (*string, *domain.Options) {
	file := fs.String("f", "requirement.cue", "requirement file (.cue or .json)")
	opts := domain.DefaultOptions()
	fs.BoolVar(&opts.Parallel, "parallel", opts.Parallel, "generate independent items concurrently")
	fs.IntVar(&opts.MaxConcurrency, "max-concurrency", opts.MaxConcurrency, "parallel generation ceiling")
	fs.BoolVar(&opts.GenerateTests, "tests", false, "include the testing stage")
	fs.BoolVar(&opts.GenerateDocumentation, "docs", false, "include the documenting stage")
	fs.BoolVar(&opts.ValidateOutput, "validate", false, "validate generated artifacts")
	target := fs.String("deploy", string(domain.TargetNone), "deployment target: vercel, netlify, s3, none")
	fs.Parse(args)
	opts.DeploymentTarget = domain.DeploymentTarget(*target)
	return file, &opts
}

func runLocal(args []string) {
	log := logger.Init(slog.LevelWarn)
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file, opts := localFlags(fs, args)

	req, err := requirement.LoadFile(*file)
	if err != nil {
		fmt.Printf("Cannot load requirement: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		fmt.Printf("Init failed: %v\n", err)
		os.Exit(1)
	}
	defer container.Close()

	res, err := container.SvcOrchestration.Execute(ctx, req, *opts)
	if err != nil {
		fmt.Printf("Run rejected: %v\n", err)
		os.Exit(1)
	}

	printResult(res)
	if !res.Success {
		os.Exit(1)
	}
}

func runPlan(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	file, _ := localFlags(fs, args)

	req, err := requirement.LoadFile(*file)
	if err != nil {
		fmt.Printf("Cannot load requirement: %v\n", err)
		os.Exit(1)
	}

	plan := planner.Build(req)
	b, _ := json.MarshalIndent(plan, "", "  ")
	fmt.Println(string(b))
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	jobID := fs.String("job", "", "job id to follow")
	addr := fs.String("addr", "localhost:8080", "server host:port")
	fs.Parse(args)

	if *jobID == "" {
		fmt.Println("watch requires -job <id>")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ws.NewClient(fmt.Sprintf("ws://%s/ws/jobs/%s", *addr, *jobID), func(ev domain.Progress) {
		line := fmt.Sprintf("[%3d%%] %-22s %s", ev.Percent, ev.Stage, ev.Message)
		if ev.Component != "" {
			line += " (" + ev.Component + ")"
		}
		fmt.Println(line)
	})
	client.OnError = func(err error) {
		fmt.Printf("stream error: %v\n", err)
	}
	defer client.Close()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		os.Exit(1)
	}
}

func runMCP() {
	log := logger.Init(slog.LevelError)
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	container, err := app.NewContainer(context.Background(), cfg, log)
	if err != nil {
		fmt.Printf("Init failed: %v\n", err)
		os.Exit(1)
	}
	defer container.Close()
	mcp.Run(container.SvcOrchestration)
}

func printResult(res *domain.OrchestrationResult) {
	status := "COMPLETED"
	if !res.Success {
		status = "FAILED"
	}
	fmt.Printf("Job %s %s in %s\n", res.JobID, status, res.Metrics.TotalDuration)
	fmt.Printf("  components: %d  endpoints: %d  schemas: %d  workflows: %d\n",
		res.Metrics.ComponentCount, res.Metrics.EndpointCount,
		res.Metrics.SchemaCount, res.Metrics.WorkflowCount)
	fmt.Printf("  generated lines: %d\n", res.Metrics.GeneratedLines)
	if res.DeploymentURL != "" {
		fmt.Printf("  deployed: %s\n", res.DeploymentURL)
	}
	for _, e := range res.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
