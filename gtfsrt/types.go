package gtfsrt

import (
	"errors"
	"time"
)

// ErrFeedUnavailable is returned when no realtime data can be served: every
// feed source failed and no previous snapshot exists to fall back on.
var ErrFeedUnavailable = errors.New("realtime feeds unavailable")

// Train is one realtime arrival prediction. Trains are created fresh on
// every feed parse and replaced wholesale on refresh, never mutated.
type Train struct {
	Line        string `json:"line"`
	Direction   int    `json:"direction"` // 0 or 1
	StopID      string `json:"stop_id"`   // platform id as reported, e.g. "127N"
	ArrivalTime int64  `json:"arrival_time"`
	Minutes     int    `json:"minutes"`
	Destination string `json:"destination"`
	TripID      string `json:"trip_id,omitempty"`
}

// Alert is a service alert for a single line. An upstream alert affecting
// several lines yields one Alert per line with the message replicated.
type Alert struct {
	Line     string `json:"line"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause,omitempty"`
}

// Snapshot is the merged result of one refresh across all feed sources.
type Snapshot struct {
	Trains    []Train
	Alerts    []Alert
	FetchedAt time.Time
	// Stale is set when this snapshot is served after a refresh attempt
	// failed entirely; the data is the last good fetch.
	Stale bool
	// SourceErrors records per-source fetch/decode failures of the refresh
	// that produced this snapshot.
	SourceErrors map[string]error
	// SkippedEntities counts malformed feed entities dropped during decode.
	SkippedEntities int
}

// Age returns how old the snapshot is at the given instant.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
