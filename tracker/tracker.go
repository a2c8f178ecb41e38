package tracker

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"traintrack/gtfs"
	"traintrack/gtfsrt"
)

const resolveCacheSize = 512

// Tracker joins the station index with the realtime feed cache.
type Tracker struct {
	index    *gtfs.StationIndex
	feeds    *gtfsrt.FeedCache
	resolved gcache.Cache
}

// New creates a Tracker over a loaded station index and a feed cache.
func New(index *gtfs.StationIndex, feeds *gtfsrt.FeedCache) *Tracker {
	return &Tracker{
		index: index,
		feeds: feeds,
		resolved: gcache.New(resolveCacheSize).
			LRU().
			Expiration(time.Hour).
			Build(),
	}
}

// IndexSize reports how many stations the underlying index holds.
func (t *Tracker) IndexSize() int {
	return t.index.Len()
}

// GetStation resolves a free-form query (station ID or name fragment) to a
// station. Successful resolutions are memoized; a failed lookup is always
// re-evaluated and never touches the feed cache.
func (t *Tracker) GetStation(query string) (*gtfs.Station, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, err := t.resolved.Get(key); err == nil {
		return cached.(*gtfs.Station), nil
	}
	station, err := t.index.Resolve(query)
	if err != nil {
		return nil, err
	}
	t.resolved.Set(key, station)
	return station, nil
}

// GetArrivals returns the station's upcoming trains grouped by direction
// label, soonest first within each group.
func (t *Tracker) GetArrivals(ctx context.Context, query string) (map[string][]gtfsrt.Train, error) {
	station, err := t.GetStation(query)
	if err != nil {
		return nil, err
	}
	snap, err := t.feeds.GetSnapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	return t.arrivalsFromSnapshot(station, snap), nil
}

// GetAlerts returns the active alerts for the lines serving the station.
func (t *Tracker) GetAlerts(ctx context.Context, query string) ([]gtfsrt.Alert, error) {
	station, err := t.GetStation(query)
	if err != nil {
		return nil, err
	}
	snap, err := t.feeds.GetSnapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	return alertsFromSnapshot(station, snap), nil
}

// GetStationData returns the combined realtime view of a station. Arrivals
// and alerts come from the same snapshot so the two halves are consistent.
func (t *Tracker) GetStationData(ctx context.Context, query string) (*StationData, error) {
	station, err := t.GetStation(query)
	if err != nil {
		return nil, err
	}
	snap, err := t.feeds.GetSnapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	return &StationData{
		Station:   station,
		Trains:    t.arrivalsFromSnapshot(station, snap),
		Alerts:    alertsFromSnapshot(station, snap),
		UpdatedAt: snap.FetchedAt,
		Stale:     snap.Stale,
	}, nil
}

func (t *Tracker) arrivalsFromSnapshot(station *gtfs.Station, snap *gtfsrt.Snapshot) map[string][]gtfsrt.Train {
	points := map[string]bool{}
	for _, sp := range t.index.StopPointsFor(station) {
		points[sp] = true
		points[gtfsrt.BaseStopID(sp)] = true
	}

	groups := map[string][]gtfsrt.Train{}
	for _, train := range snap.Trains {
		if !points[train.StopID] && !points[gtfsrt.BaseStopID(train.StopID)] {
			continue
		}
		label := DirectionLabel(train.Line, train.Direction)
		groups[label] = append(groups[label], train)
	}
	for label := range groups {
		trains := groups[label]
		sort.Slice(trains, func(i, j int) bool {
			if trains[i].Minutes != trains[j].Minutes {
				return trains[i].Minutes < trains[j].Minutes
			}
			if trains[i].Line != trains[j].Line {
				return trains[i].Line < trains[j].Line
			}
			return trains[i].Destination < trains[j].Destination
		})
	}
	return groups
}

func alertsFromSnapshot(station *gtfs.Station, snap *gtfsrt.Snapshot) []gtfsrt.Alert {
	var out []gtfsrt.Alert
	for _, alert := range snap.Alerts {
		if station.HasLine(alert.Line) {
			out = append(out, alert)
		}
	}
	return out
}
