package progress

import (
	"errors"
	"sync"
	"testing"

	"github.com/strogmv/forge/internal/domain"
)

type recordingConn struct {
	mu     sync.Mutex
	events []domain.Progress
	fail   bool
}

func (c *recordingConn) Send(ev domain.Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write failed")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	conn := &recordingConn{}

	hub.Subscribe("job-1", conn)
	hub.Subscribe("job-1", conn)

	hub.Publish("job-1", domain.Progress{Stage: domain.StageAnalyzing})

	if got := conn.count(); got != 1 {
		t.Fatalf("double subscribe delivered %d copies, want 1", got)
	}
}

func TestPublishWithNoSubscribersDropsEvent(t *testing.T) {
	hub := NewHub(nil)
	// Must not panic or block.
	hub.Publish("nobody", domain.Progress{Stage: domain.StageCompleted})
}

func TestFailedConnDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(nil)
	bad := &recordingConn{fail: true}
	good := &recordingConn{}

	hub.Subscribe("job-1", bad)
	hub.Subscribe("job-1", good)

	hub.Publish("job-1", domain.Progress{Stage: domain.StageTesting})

	if got := good.count(); got != 1 {
		t.Fatalf("healthy conn got %d events, want 1", got)
	}
}

func TestUnsubscribeDropsEmptyEntry(t *testing.T) {
	hub := NewHub(nil)
	conn := &recordingConn{}

	hub.Subscribe("job-1", conn)
	if got := hub.SubscriberCount("job-1"); got != 1 {
		t.Fatalf("subscriber count %d, want 1", got)
	}

	hub.Unsubscribe("job-1", conn)
	if got := hub.SubscriberCount("job-1"); got != 0 {
		t.Fatalf("subscriber count after unsubscribe %d, want 0", got)
	}

	hub.mu.RLock()
	_, exists := hub.jobs["job-1"]
	hub.mu.RUnlock()
	if exists {
		t.Fatal("empty registry entry must be dropped")
	}
}

func TestPublishIsIsolatedPerJob(t *testing.T) {
	hub := NewHub(nil)
	a := &recordingConn{}
	b := &recordingConn{}

	hub.Subscribe("job-a", a)
	hub.Subscribe("job-b", b)

	hub.Publish("job-a", domain.Progress{Stage: domain.StageAnalyzing})

	if a.count() != 1 || b.count() != 0 {
		t.Fatalf("cross-job delivery: a=%d b=%d", a.count(), b.count())
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			conn := &recordingConn{}
			hub.Subscribe("job-1", conn)
			hub.Unsubscribe("job-1", conn)
		}()
		go func() {
			defer wg.Done()
			hub.Publish("job-1", domain.Progress{Stage: domain.StageIntegrating})
		}()
	}
	wg.Wait()
}
