package gtfs

// Station represents one subway station. Immutable once loaded.
type Station struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Lines     []string `json:"lines"` // route IDs serving this station, sorted
}

// HasLine reports whether the given route serves this station.
func (s *Station) HasLine(routeID string) bool {
	for _, l := range s.Lines {
		if l == routeID {
			return true
		}
	}
	return false
}
