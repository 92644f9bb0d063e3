package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/strogmv/forge/internal/adapter/generator/static"
	"github.com/strogmv/forge/internal/adapter/repository/memory"
	"github.com/strogmv/forge/internal/progress"
	"github.com/strogmv/forge/internal/service"
	"github.com/strogmv/forge/internal/transport/ws"
)

func newTestServer(t *testing.T, apiKeyHash string) *httptest.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	hub := progress.NewHub(log)
	svc := service.NewOrchestration(static.Generators(), nil, hub, memory.NewRunRepository(), log)

	router := NewRouter(NewHandler(svc), ws.NewServer(hub, log), RouterConfig{
		AllowedOrigins: []string{"*"},
		APIKeyHash:     apiKeyHash,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

const startBody = `{
	"requirement": {
		"name": "crm",
		"forms": [{"name": "lead", "fields": [{"name": "email", "type": "string"}]}]
	}
}`

func TestStartReturnsJobID(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/orchestrations", "application/json", strings.NewReader(startBody))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d, want 202", resp.StatusCode)
	}

	var out struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.JobID == "" {
		t.Fatal("empty job id")
	}
}

func TestStartRejectsUnnamedRequirement(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/orchestrations", "application/json",
		strings.NewReader(`{"requirement": {}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestStatusUnknownJobIs404(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/orchestrations/not-a-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestStartRequiresAPIKeyWhenConfigured(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	srv := newTestServer(t, string(hash))

	resp, err := http.Post(srv.URL+"/api/orchestrations", "application/json", strings.NewReader(startBody))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/orchestrations", strings.NewReader(startBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("authenticated status %d, want 202", resp.StatusCode)
	}
}

func TestReportForFinishedRun(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/orchestrations", "application/json", strings.NewReader(startBody))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var out struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	// The offline generators finish quickly; poll until terminal.
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err = http.Get(srv.URL + "/api/orchestrations/" + out.JobID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		var state struct {
			Running bool `json:"running"`
		}
		err = json.NewDecoder(resp.Body).Decode(&state)
		resp.Body.Close()
		if err == nil && !state.Running && resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish in time")
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp, err = http.Get(srv.URL + "/api/orchestrations/" + out.JobID + "/report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q, want application/pdf", ct)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "")
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}
