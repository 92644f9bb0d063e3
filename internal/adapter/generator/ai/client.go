// Package ai adapts a hosted text-completion service to the Generator port.
// The prompt/response protocol is intentionally thin: the orchestrator treats
// this collaborator as a black box that either returns files or fails.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/pkg/circuitbreaker"
	"github.com/strogmv/forge/internal/port"
)

const maxResponseBytes = 4 << 20

// Client calls the completion endpoint for one artifact category.
type Client struct {
	httpClient *http.Client
	url        string
	key        string
	model      string
	breaker    *circuitbreaker.Breaker
	log        *slog.Logger
}

func NewClient(url, key, model string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		url:        url,
		key:        key,
		model:      model,
		breaker:    circuitbreaker.NewBreaker(5, 30*time.Second, 1),
		log:        log,
	}
}

type completionRequest struct {
	Model       string `json:"model"`
	Category    string `json:"category"`
	Component   string `json:"component"`
	Complexity  string `json:"complexity"`
	Requirement any    `json:"requirement"`
	WithTests   bool   `json:"withTests"`
}

type completionResponse struct {
	Files map[string]string `json:"files"`
	Error string            `json:"error,omitempty"`
}

// Generate implements port.Generator. Any transport or protocol fault is
// returned as an error so the executor's retry policy has one signal.
func (c *Client) Generate(ctx context.Context, req domain.BusinessRequirement, opts port.GenerateOptions) (domain.ArtifactBundle, error) {
	var bundle domain.ArtifactBundle
	err := c.breaker.Do(ctx, func(cctx context.Context) error {
		var cerr error
		bundle, cerr = c.generate(cctx, req, opts)
		return cerr
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func (c *Client) generate(ctx context.Context, req domain.BusinessRequirement, opts port.GenerateOptions) (domain.ArtifactBundle, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Category:    string(opts.Category),
		Component:   opts.Component,
		Complexity:  string(opts.Complexity),
		Requirement: req,
		WithTests:   opts.GenerateTests,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion service returned %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("completion service: %s", out.Error)
	}
	if len(out.Files) == 0 {
		return nil, fmt.Errorf("completion service returned no files for %s", opts.Component)
	}

	c.log.Debug("completion succeeded",
		slog.String("component", opts.Component),
		slog.Int("files", len(out.Files)))
	return domain.ArtifactBundle(out.Files), nil
}

// Generators builds a GeneratorSet routing every artifact category through
// the same completion client.
func Generators(c *Client) port.GeneratorSet {
	set := port.GeneratorSet{}
	for _, cat := range []domain.ArtifactCategory{
		domain.CategoryComponents,
		domain.CategoryAPI,
		domain.CategoryDatabase,
		domain.CategoryWorkflows,
		domain.CategoryChatbots,
		domain.CategoryTests,
		domain.CategoryDocumentation,
	} {
		set[cat] = c
	}
	return set
}
