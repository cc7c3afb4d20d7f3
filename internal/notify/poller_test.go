package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu        sync.Mutex
	completed int
	failed    int
	unread    int
}

func (o *countingObserver) PollCompleted(unread int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
	o.unread = unread
}

func (o *countingObserver) PollFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func (o *countingObserver) snapshot() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completed, o.failed, o.unread
}

// TestPollerFetchesImmediatelyAndPeriodically tests the first-cycle
// fetch and the ticker cadence.
func TestPollerFetchesImmediatelyAndPeriodically(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "notifications": []Notification{
			{ID: "n1", Read: false},
		}})
	}))
	defer server.Close()

	store := newTestNotifyStore(t, server.URL)
	poller := NewPoller(store, time.Second, nil)
	poller.interval = 20 * time.Millisecond // below the public floor, set directly

	obs := &countingObserver{}
	poller.SetObserver(obs)

	poller.Start(context.Background())
	require.Eventually(t, func() bool {
		return fetches.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	poller.Stop()

	completed, _, unread := obs.snapshot()
	assert.GreaterOrEqual(t, completed, 3)
	assert.Equal(t, 1, unread)
	assert.Equal(t, 1, store.UnreadCount())
}

// TestPollerStopTerminatesLoop tests that Stop halts polling and that
// no fetch happens afterwards. Stop must be idempotent.
func TestPollerStopTerminatesLoop(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "notifications": []Notification{}})
	}))
	defer server.Close()

	store := newTestNotifyStore(t, server.URL)
	poller := NewPoller(store, time.Second, nil)
	poller.interval = 10 * time.Millisecond

	poller.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() >= 1 }, time.Second, time.Millisecond)

	poller.Stop()
	poller.Stop()

	select {
	case <-poller.Done():
	default:
		t.Fatal("done channel not closed after Stop")
	}

	after := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fetches.Load())
}

// TestPollerContextCancellation tests that cancelling the context ends
// the loop without an explicit Stop.
func TestPollerContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "notifications": []Notification{}})
	}))
	defer server.Close()

	store := newTestNotifyStore(t, server.URL)
	poller := NewPoller(store, time.Second, nil)
	poller.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	cancel()

	select {
	case <-poller.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on context cancellation")
	}
}

// TestPollerStartOnce tests that a second Start does not spawn another
// polling loop.
func TestPollerStartOnce(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "notifications": []Notification{}})
	}))
	defer server.Close()

	store := newTestNotifyStore(t, server.URL)
	poller := NewPoller(store, time.Second, nil)
	poller.interval = 20 * time.Millisecond

	poller.Start(context.Background())
	poller.Start(context.Background())

	require.Eventually(t, func() bool { return fetches.Load() >= 1 }, time.Second, time.Millisecond)
	first := fetches.Load()
	time.Sleep(30 * time.Millisecond)
	// One loop produces at most ~2 extra fetches in 30ms at a 20ms tick.
	assert.LessOrEqual(t, fetches.Load(), first+3)
	poller.Stop()
}

// TestPollerAuthFailureCallback tests the one-shot auth failure hook.
func TestPollerAuthFailureCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Session expired"})
	}))
	defer server.Close()

	store := newTestNotifyStore(t, server.URL)
	poller := NewPoller(store, time.Second, nil)
	poller.interval = 10 * time.Millisecond

	var authFailures atomic.Int32
	poller.OnAuthFailure = func() {
		authFailures.Add(1)
	}
	obs := &countingObserver{}
	poller.SetObserver(obs)

	poller.Start(context.Background())
	require.Eventually(t, func() bool {
		_, failed, _ := obs.snapshot()
		return failed >= 3
	}, 2*time.Second, 5*time.Millisecond)
	poller.Stop()

	// The hook fires exactly once no matter how many cycles fail.
	assert.Equal(t, int32(1), authFailures.Load())
}

// TestNewPollerIntervalFloor tests the default interval substitution.
func TestNewPollerIntervalFloor(t *testing.T) {
	store := newTestNotifyStore(t, "http://localhost:1")
	poller := NewPoller(store, 5*time.Millisecond, nil)
	assert.Equal(t, 30*time.Second, poller.interval)

	poller = NewPoller(store, 2*time.Second, nil)
	assert.Equal(t, 2*time.Second, poller.interval)
}
