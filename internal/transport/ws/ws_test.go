package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/progress"
)

func TestBackoffDelaySchedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for n, expected := range want {
		if got := backoffDelay(n); got != expected {
			t.Fatalf("backoffDelay(%d) = %s, want %s", n, got, expected)
		}
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *progress.Hub) {
	t.Helper()
	hub := progress.NewHub(slog.New(slog.DiscardHandler))
	wsServer := NewServer(hub, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	r.Get("/ws/jobs/{jobID}", wsServer.Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, jobID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs/" + jobID
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestServerSendsConnectedThenProgress(t *testing.T) {
	srv, hub := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "job-1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read connected: %v", err)
	}
	var hello connectedMsg
	if err := json.Unmarshal(payload, &hello); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if hello.Type != TypeConnected || hello.JobID != "job-1" {
		t.Fatalf("unexpected hello: %+v", hello)
	}

	waitFor(t, time.Second, func() bool { return hub.SubscriberCount("job-1") == 1 })
	hub.Publish("job-1", domain.Progress{
		JobID:   "job-1",
		Stage:   domain.StageGeneratingAPI,
		Percent: 35,
		Message: "Generating API endpoints",
	})

	_, payload, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	var msg progressMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if msg.Type != TypeProgress || msg.Stage != domain.StageGeneratingAPI || msg.Percent != 35 {
		t.Fatalf("unexpected progress: %+v", msg)
	}
}

func TestServerAnswersPingWithPong(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "job-1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil { // connected
		t.Fatalf("read connected: %v", err)
	}

	if err := conn.WriteJSON(controlMsg{Type: TypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	var msg controlMsg
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode pong: %v", err)
	}
	if msg.Type != TypePong {
		t.Fatalf("expected pong, got %q", msg.Type)
	}
}

func TestServerDetachesSubscriberOnClose(t *testing.T) {
	srv, hub := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "job-1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, time.Second, func() bool { return hub.SubscriberCount("job-1") == 1 })

	conn.Close()
	waitFor(t, time.Second, func() bool { return hub.SubscriberCount("job-1") == 0 })
}

func TestServerRejectsMissingJobID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws/jobs/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusSwitchingProtocols {
		t.Fatal("upgrade must not succeed without a job id")
	}
}

func TestClientReceivesProgressAndStopsOnNormalClose(t *testing.T) {
	srv, hub := newTestServer(t)

	received := make(chan domain.Progress, 8)
	client := NewClient(wsURL(srv, "job-1"), func(ev domain.Progress) {
		received <- ev
	})
	client.Log = slog.New(slog.DiscardHandler)
	client.PingInterval = 50 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	waitFor(t, time.Second, func() bool { return hub.SubscriberCount("job-1") == 1 })
	hub.Publish("job-1", domain.Progress{JobID: "job-1", Stage: domain.StageCompleted, Percent: 100})

	select {
	case ev := <-received:
		if ev.Stage != domain.StageCompleted {
			t.Fatalf("stage = %s, want completed", ev.Stage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no progress delivered to client")
	}

	// Explicit unsubscribe: normal closure, no reconnect.
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after normal close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after normal close")
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	// Nothing listens on this address; every dial fails.
	var terminal error
	client := NewClient("ws://127.0.0.1:1/ws/jobs/job-1", nil)
	client.Log = slog.New(slog.DiscardHandler)
	client.OnError = func(err error) { terminal = err }
	// Collapse the schedule so six failed dials finish quickly; the attempt
	// accounting under test is unchanged.
	client.backoff = func(int) time.Duration { return 0 }

	err := client.Run(context.Background())
	if err == nil {
		t.Fatal("expected a terminal transport error")
	}
	if terminal == nil {
		t.Fatal("terminal error must be surfaced through OnError")
	}
	if !strings.Contains(err.Error(), "giving up after 5 attempts") {
		t.Fatalf("unexpected terminal error: %v", err)
	}
}
