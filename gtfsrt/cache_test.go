package gtfsrt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"traintrack/config"
)

// feedServer serves a fixed protobuf payload and counts fetches. Setting
// fail makes every subsequent request return 502.
type feedServer struct {
	*httptest.Server
	fetches int32
	fail    int32
}

func newFeedServer(t *testing.T, payload []byte) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fs.fetches, 1)
		if atomic.LoadInt32(&fs.fail) != 0 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write(payload)
	}))
	return fs
}

func (fs *feedServer) fetchCount() int32 { return atomic.LoadInt32(&fs.fetches) }

func testRealtimeConfig(urls ...string) config.RealtimeConfig {
	return config.RealtimeConfig{FeedURLs: urls, TTLSeconds: 30, TimeoutMS: 2000}
}

func samplePayload(t *testing.T) []byte {
	t.Helper()
	now := time.Now()
	return marshalFeed(t,
		tripUpdateEntity("1", "1", "t1", map[string]int64{"127S": now.Unix() + 240}),
		alertEntity("2", "Signal problems", "1"),
	)
}

func TestFeedCache_SecondCallServedFromCache(t *testing.T) {
	fs := newFeedServer(t, samplePayload(t))
	defer fs.Close()
	c := NewFeedCache(testRealtimeConfig(fs.URL))

	first, err := c.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(first.Trains) != 1 || len(first.Alerts) != 1 {
		t.Errorf("snapshot trains=%d alerts=%d, want 1/1", len(first.Trains), len(first.Alerts))
	}

	second, err := c.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if first != second {
		t.Error("fresh snapshot should be returned as-is, not rebuilt")
	}
	if n := fs.fetchCount(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	t.Logf("✓ Second call within TTL hit the cache")
}

func TestFeedCache_ForceBypassesTTL(t *testing.T) {
	fs := newFeedServer(t, samplePayload(t))
	defer fs.Close()
	c := NewFeedCache(testRealtimeConfig(fs.URL))

	if _, err := c.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if _, err := c.GetSnapshot(context.Background(), true); err != nil {
		t.Fatalf("forced GetSnapshot failed: %v", err)
	}
	if n := fs.fetchCount(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestFeedCache_ExpiredEntryRefreshed(t *testing.T) {
	fs := newFeedServer(t, samplePayload(t))
	defer fs.Close()
	c := NewFeedCache(testRealtimeConfig(fs.URL))

	if _, err := c.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	c.mu.Lock()
	c.entry.FetchedAt = time.Now().Add(-31 * time.Second)
	c.mu.Unlock()

	if _, err := c.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot after expiry failed: %v", err)
	}
	if n := fs.fetchCount(); n != 2 {
		t.Errorf("fetches = %d, want 2 after TTL expiry", n)
	}
}

func TestFeedCache_DegradedServesStaleCopy(t *testing.T) {
	fs := newFeedServer(t, samplePayload(t))
	defer fs.Close()
	c := NewFeedCache(testRealtimeConfig(fs.URL))

	good, err := c.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	atomic.StoreInt32(&fs.fail, 1)
	stale, err := c.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("degraded GetSnapshot should serve the previous snapshot, got %v", err)
	}
	if !stale.Stale {
		t.Error("snapshot served after a failed refresh must be marked stale")
	}
	if len(stale.Trains) != len(good.Trains) {
		t.Errorf("stale snapshot lost data: %d trains, want %d", len(stale.Trains), len(good.Trains))
	}
	if good.Stale {
		t.Error("degraded serve must not mutate the retained snapshot")
	}

	// upstream recovers; next forced refresh clears the stale flag
	atomic.StoreInt32(&fs.fail, 0)
	fresh, err := c.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("GetSnapshot after recovery failed: %v", err)
	}
	if fresh.Stale {
		t.Error("recovered snapshot should not be stale")
	}
}

func TestFeedCache_UnavailableWithNoPriorSnapshot(t *testing.T) {
	fs := newFeedServer(t, samplePayload(t))
	defer fs.Close()
	atomic.StoreInt32(&fs.fail, 1)
	c := NewFeedCache(testRealtimeConfig(fs.URL))

	if _, err := c.GetSnapshot(context.Background(), false); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
}

func TestFeedCache_PartialFailureStillMerges(t *testing.T) {
	good := newFeedServer(t, samplePayload(t))
	defer good.Close()
	bad := newFeedServer(t, nil)
	defer bad.Close()
	atomic.StoreInt32(&bad.fail, 1)

	c := NewFeedCache(testRealtimeConfig(good.URL, bad.URL))
	snap, err := c.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(snap.Trains) != 1 {
		t.Errorf("trains = %d, want the healthy source's data", len(snap.Trains))
	}
	if len(snap.SourceErrors) != 1 {
		t.Errorf("SourceErrors = %v, want the one failed source", snap.SourceErrors)
	}
	if snap.Stale {
		t.Error("partial failure is not a degraded snapshot")
	}
}

func TestFeedCache_ConcurrentCallersCoalesce(t *testing.T) {
	payload := samplePayload(t)
	var fetches int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(50 * time.Millisecond)
		w.Write(payload)
	}))
	defer ts.Close()

	c := NewFeedCache(testRealtimeConfig(ts.URL))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetSnapshot(context.Background(), false); err != nil {
				t.Errorf("GetSnapshot failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("fetches = %d, want concurrent callers to share one refresh", n)
	}
}

func TestFeedCache_CancelledCallerAbandonsWait(t *testing.T) {
	payload := samplePayload(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write(payload)
	}))
	defer ts.Close()

	c := NewFeedCache(testRealtimeConfig(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.GetSnapshot(ctx, false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}

	// the refresh keeps going; its result serves the next caller
	snap, err := c.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot after abandoned wait failed: %v", err)
	}
	if len(snap.Trains) != 1 {
		t.Errorf("trains = %d, want the completed refresh's data", len(snap.Trains))
	}
}
