package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"traintrack/config"
)

// Load builds the station index from the configured static data source.
// Source order: remote zip, local zip, gob cache of a previous build. A
// malformed zip aborts immediately; an unreachable source falls through to
// the next one. ErrDataUnavailable is returned when every source is
// exhausted.
func Load(cfg config.GTFSConfig) (*StationIndex, error) {
	var firstErr error
	if cfg.StaticURL != "" {
		idx, err := loadFromStaticZip(cfg.StaticURL)
		if err == nil {
			saveIndexCache(idx, cfg.IndexCachePath)
			return idx, nil
		}
		if isParseError(err) {
			return nil, err
		}
		firstErr = err
		log.Printf("gtfs: remote load from %s failed: %v", cfg.StaticURL, err)
	}
	if cfg.LocalZipPath != "" {
		idx, err := loadFromLocalZip(cfg.LocalZipPath)
		if err == nil {
			saveIndexCache(idx, cfg.IndexCachePath)
			return idx, nil
		}
		if isParseError(err) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
		log.Printf("gtfs: local load from %s failed: %v", cfg.LocalZipPath, err)
	}
	if cfg.IndexCachePath != "" {
		idx, err := LoadIndexFile(cfg.IndexCachePath)
		if err == nil {
			log.Printf("gtfs: using cached index from %s (%d stations)", cfg.IndexCachePath, idx.Len())
			return idx, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no static data source configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, firstErr)
}

func isParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func saveIndexCache(idx *StationIndex, path string) {
	if path == "" {
		return
	}
	if err := SaveIndexFile(idx, path); err != nil {
		log.Printf("gtfs: could not write index cache %s: %v", path, err)
	}
}

func loadFromStaticZip(url string) (*StationIndex, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return NewIndexFromBytes(data)
}

func loadFromLocalZip(path string) (*StationIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewIndexFromBytes(data)
}

// NewIndexFromBytes builds a station index from a GTFS zip held in memory.
func NewIndexFromBytes(data []byte) (*StationIndex, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	b := newIndexBuilder()
	for _, name := range []string{"stops.txt", "routes.txt", "stop_times.txt"} {
		f := findZipFile(zr, name)
		if f == nil {
			return nil, &ParseError{File: name, Reason: "file missing from static bundle"}
		}
		if err := b.consumeCSV(f); err != nil {
			return nil, err
		}
	}
	return b.build()
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

type rawStop struct {
	id, name     string
	lat, lon     float64
	parent       string
	locationType string
}

type indexBuilder struct {
	stops        []rawStop
	routes       map[string]struct{}
	stopsByRoute map[string]map[string]struct{}
}

func newIndexBuilder() *indexBuilder {
	return &indexBuilder{
		routes:       map[string]struct{}{},
		stopsByRoute: map[string]map[string]struct{}{},
	}
}

func (b *indexBuilder) consumeCSV(f *zip.File) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return &ParseError{File: f.Name, Reason: err.Error()}
	}
	if len(rec) == 0 {
		return &ParseError{File: f.Name, Reason: "empty file"}
	}
	head := rec[0]
	idx := func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
	require := func(cols ...string) (map[string]int, error) {
		m := map[string]int{}
		for _, c := range cols {
			i := idx(c)
			if i < 0 {
				return nil, &ParseError{File: f.Name, Reason: "missing required column " + c}
			}
			m[c] = i
		}
		return m, nil
	}
	field := func(row []string, i int) string {
		if i >= 0 && i < len(row) {
			return row[i]
		}
		return ""
	}
	switch strings.ToLower(f.Name) {
	case "stops.txt":
		cols, err := require("stop_id", "stop_name", "stop_lat", "stop_lon")
		if err != nil {
			return err
		}
		parent := idx("parent_station")
		locType := idx("location_type")
		for n, row := range rec[1:] {
			lat, latErr := strconv.ParseFloat(field(row, cols["stop_lat"]), 64)
			lon, lonErr := strconv.ParseFloat(field(row, cols["stop_lon"]), 64)
			if latErr != nil || lonErr != nil {
				return &ParseError{File: f.Name, Reason: fmt.Sprintf("row %d: invalid coordinates", n+2)}
			}
			id := field(row, cols["stop_id"])
			if id == "" {
				return &ParseError{File: f.Name, Reason: fmt.Sprintf("row %d: empty stop_id", n+2)}
			}
			b.stops = append(b.stops, rawStop{
				id:           id,
				name:         field(row, cols["stop_name"]),
				lat:          lat,
				lon:          lon,
				parent:       field(row, parent),
				locationType: field(row, locType),
			})
		}
	case "routes.txt":
		cols, err := require("route_id")
		if err != nil {
			return err
		}
		for _, row := range rec[1:] {
			if id := field(row, cols["route_id"]); id != "" {
				b.routes[id] = struct{}{}
			}
		}
	case "stop_times.txt":
		cols, err := require("trip_id", "stop_id")
		if err != nil {
			return err
		}
		for _, row := range rec[1:] {
			routeID := routeFromTripID(field(row, cols["trip_id"]))
			stopID := field(row, cols["stop_id"])
			if routeID == "" || stopID == "" {
				continue
			}
			if _, known := b.routes[routeID]; !known {
				continue
			}
			set := b.stopsByRoute[routeID]
			if set == nil {
				set = map[string]struct{}{}
				b.stopsByRoute[routeID] = set
			}
			set[stopID] = struct{}{}
		}
	}
	return nil
}

// routeFromTripID extracts the route from an MTA trip id of the form
// PREFIX_TIMESTAMP_ROUTE..DIRECTION (e.g. "AFA25GEN-1038-Sunday-00_020600_1..S03R").
func routeFromTripID(tripID string) string {
	before, _, ok := strings.Cut(tripID, "..")
	if !ok {
		return ""
	}
	segs := strings.Split(before, "_")
	return segs[len(segs)-1]
}

func (b *indexBuilder) build() (*StationIndex, error) {
	idx := &StationIndex{
		stations:     map[string]*Station{},
		normNames:    map[string]string{},
		stopsByRoute: map[string][]string{},
		parentOf:     map[string]string{},
		childrenOf:   map[string][]string{},
	}
	lines := map[string]map[string]struct{}{} // stop_id -> route set
	for _, rs := range b.stops {
		if rs.parent != "" {
			idx.parentOf[rs.id] = rs.parent
			idx.childrenOf[rs.parent] = append(idx.childrenOf[rs.parent], rs.id)
		} else if rs.locationType == "1" {
			idx.parentOf[rs.id] = rs.id
		}
	}
	for routeID, stops := range b.stopsByRoute {
		ids := make([]string, 0, len(stops))
		for stopID := range stops {
			ids = append(ids, stopID)
			addLine(lines, stopID, routeID)
			// stop_times references platforms; propagate to the parent station
			if parent, ok := idx.parentOf[stopID]; ok && parent != stopID {
				addLine(lines, parent, routeID)
			}
		}
		sort.Strings(ids)
		idx.stopsByRoute[routeID] = ids
	}
	// Stations that no route serves (entrances, generic nodes) are not part
	// of the catalogue; every indexed Station has a non-empty line set.
	for _, rs := range b.stops {
		routeSet := lines[rs.id]
		if len(routeSet) == 0 {
			continue
		}
		st := &Station{
			ID:        rs.id,
			Name:      rs.name,
			Latitude:  rs.lat,
			Longitude: rs.lon,
			Lines:     make([]string, 0, len(routeSet)),
		}
		for routeID := range routeSet {
			st.Lines = append(st.Lines, routeID)
		}
		sort.Strings(st.Lines)
		idx.stations[rs.id] = st
		idx.nameOrder = append(idx.nameOrder, rs.id)
		norm := NormalizeName(rs.name)
		if _, seen := idx.normNames[norm]; !seen {
			idx.normNames[norm] = rs.id
		}
	}
	if len(idx.stations) == 0 {
		return nil, &ParseError{File: "stop_times.txt", Reason: "no stop is served by any known route"}
	}
	return idx, nil
}

func addLine(lines map[string]map[string]struct{}, stopID, routeID string) {
	set := lines[stopID]
	if set == nil {
		set = map[string]struct{}{}
		lines[stopID] = set
	}
	set[routeID] = struct{}{}
}
