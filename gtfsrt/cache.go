package gtfsrt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"traintrack/config"
)

// FeedCache holds the single current Snapshot and refreshes it at most once
// per TTL window. Refresh is the only operation that touches the network;
// everything else is in-memory.
type FeedCache struct {
	client *Client
	urls   []string
	ttl    time.Duration

	mu         sync.Mutex
	entry      *Snapshot
	degraded   bool          // last refresh attempt failed entirely
	refreshing chan struct{} // non-nil while a refresh is in flight
}

// NewFeedCache creates a cache over the configured feed sources.
func NewFeedCache(cfg config.RealtimeConfig) *FeedCache {
	return &FeedCache{
		client: NewClient(cfg.Timeout()),
		urls:   cfg.FeedURLs,
		ttl:    cfg.TTL(),
	}
}

// GetSnapshot returns the current snapshot, refreshing first when forced,
// when no entry exists, or when the entry's age has reached the TTL.
// Concurrent callers observing a stale entry coalesce onto one in-flight
// refresh. Cancelling ctx abandons the wait only: the refresh keeps running
// on its own timeouts and installs its result for the next caller.
func (c *FeedCache) GetSnapshot(ctx context.Context, force bool) (*Snapshot, error) {
	c.mu.Lock()
	if !force && c.fresh() {
		snap := c.entry
		c.mu.Unlock()
		return snap, nil
	}
	done := c.refreshing
	if done == nil {
		done = make(chan struct{})
		c.refreshing = done
		go c.runRefresh(done)
	}
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.serve()
}

// fresh reports whether the current entry exists and is within the TTL.
// Callers must hold mu.
func (c *FeedCache) fresh() bool {
	return c.entry != nil && c.entry.Age(time.Now()) < c.ttl
}

func (c *FeedCache) runRefresh(done chan struct{}) {
	snap, err := c.refresh(context.Background())
	c.mu.Lock()
	if err != nil {
		c.degraded = true
		log.Printf("gtfsrt: refresh failed: %v", err)
	} else {
		c.entry = snap
		c.degraded = false
	}
	c.refreshing = nil
	close(done)
	c.mu.Unlock()
}

// Refresh fetches all sources immediately, regardless of the entry's age.
func (c *FeedCache) Refresh(ctx context.Context) error {
	_, err := c.GetSnapshot(ctx, true)
	return err
}

// serve returns the entry after a refresh attempt. A wholly failed refresh
// degrades to the previous entry, marked stale; with no previous entry it
// escalates to ErrFeedUnavailable.
func (c *FeedCache) serve() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return nil, fmt.Errorf("%w: no snapshot has ever been fetched", ErrFeedUnavailable)
	}
	if c.degraded {
		stale := *c.entry
		stale.Stale = true
		return &stale, nil
	}
	return c.entry, nil
}

// refresh fetches every source independently and merges the successes.
func (c *FeedCache) refresh(ctx context.Context) (*Snapshot, error) {
	type sourceResult struct {
		url     string
		trains  []Train
		alerts  []Alert
		skipped int
		err     error
	}

	results := make(chan sourceResult, len(c.urls))
	var wg sync.WaitGroup
	for _, url := range c.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			data, err := c.client.Fetch(ctx, url)
			if err != nil {
				results <- sourceResult{url: url, err: err}
				return
			}
			trains, alerts, skipped, err := ParseFeed(data, time.Now())
			results <- sourceResult{url: url, trains: trains, alerts: alerts, skipped: skipped, err: err}
		}(url)
	}
	wg.Wait()
	close(results)

	snap := &Snapshot{SourceErrors: map[string]error{}}
	succeeded := 0
	for res := range results {
		if res.err != nil {
			log.Printf("gtfsrt: source %s failed: %v", res.url, res.err)
			snap.SourceErrors[res.url] = res.err
			continue
		}
		succeeded++
		snap.Trains = append(snap.Trains, res.trains...)
		snap.Alerts = append(snap.Alerts, res.alerts...)
		snap.SkippedEntities += res.skipped
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%w: all %d sources failed", ErrFeedUnavailable, len(c.urls))
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}
