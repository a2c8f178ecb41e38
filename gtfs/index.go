package gtfs

import "strings"

// StationIndex stores the station catalogue in memory for fast lookups
type StationIndex struct {
	stations map[string]*Station
	// nameOrder preserves stops.txt row order; name matches are resolved in
	// this order, so ties go to the earliest row in the static data.
	nameOrder    []string
	normNames    map[string]string   // normalized name -> first stop_id
	stopsByRoute map[string][]string // route_id -> stop_ids, sorted
	parentOf     map[string]string   // stop_id -> parent stop_id
	childrenOf   map[string][]string // parent stop_id -> platform stop_ids
}

// ByID returns the station with the exact identifier. Identifiers are
// case-sensitive per upstream convention.
func (idx *StationIndex) ByID(id string) (*Station, error) {
	s, ok := idx.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// ByName matches a station by normalized name. An exact normalized match
// wins; otherwise the first station (in stops-file order) whose normalized
// name contains the normalized query is returned.
func (idx *StationIndex) ByName(query string) (*Station, error) {
	q := NormalizeName(query)
	if q == "" {
		return nil, ErrNotFound
	}
	if id, ok := idx.normNames[q]; ok {
		return idx.stations[id], nil
	}
	for _, id := range idx.nameOrder {
		if strings.Contains(NormalizeName(idx.stations[id].Name), q) {
			return idx.stations[id], nil
		}
	}
	return nil, ErrNotFound
}

// Resolve tries the query as a stop identifier first, then as a name.
func (idx *StationIndex) Resolve(query string) (*Station, error) {
	if s, err := idx.ByID(query); err == nil {
		return s, nil
	}
	return idx.ByName(query)
}

// StopPointsFor returns the stop identifiers whose realtime predictions
// belong to the station: the directional platform ids when the static data
// knows them, otherwise the station's own id. Realtime feeds report platform
// ids (e.g. "127N"), so callers should also match on the base id.
func (idx *StationIndex) StopPointsFor(s *Station) []string {
	parent, ok := idx.parentOf[s.ID]
	if !ok {
		parent = s.ID
	}
	if children := idx.childrenOf[parent]; len(children) > 0 {
		out := make([]string, len(children))
		copy(out, children)
		return out
	}
	return []string{parent}
}

// StationsForRoute returns the ids of all stops served by a route.
func (idx *StationIndex) StationsForRoute(routeID string) []string {
	ids := idx.stopsByRoute[routeID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Len returns the number of indexed stations.
func (idx *StationIndex) Len() int { return len(idx.stations) }

// abbreviations maps spelled-out street words to the short forms used in the
// MTA's stop names, longest key first so "Boulevard" wins over "Road".
var abbreviations = strings.NewReplacer(
	"BOULEVARD", "BLVD",
	"PARKWAY", "PKWY",
	"HEIGHTS", "HTS",
	"CENTER", "CTR",
	"SQUARE", "SQ",
	"STREET", "ST",
	"AVENUE", "AV",
	"PLACE", "PL",
	"ROAD", "RD",
)

// NormalizeName folds a station name or query for matching: trimmed,
// upper-cased, whitespace collapsed, known abbreviations expanded.
func NormalizeName(name string) string {
	up := strings.ToUpper(strings.TrimSpace(name))
	up = strings.Join(strings.Fields(up), " ")
	return abbreviations.Replace(up)
}
