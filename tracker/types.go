package tracker

import (
	"time"

	"traintrack/gtfs"
	"traintrack/gtfsrt"
)

// StationData is the combined realtime view of one station: upcoming trains
// grouped by direction label, plus any service alerts touching the station's
// lines.
type StationData struct {
	Station   *gtfs.Station             `json:"station"`
	Trains    map[string][]gtfsrt.Train `json:"trains"`
	Alerts    []gtfsrt.Alert            `json:"alerts"`
	UpdatedAt time.Time                 `json:"updated_at"`
	Stale     bool                      `json:"stale"`
}
