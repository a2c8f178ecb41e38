package gtfs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a query matches no station.
var ErrNotFound = errors.New("station not found")

// ErrDataUnavailable is returned when the static reference data could not be
// obtained from any configured source. Fatal to index initialization.
var ErrDataUnavailable = errors.New("gtfs static data unavailable")

// ParseError reports malformed static data. Static parse failures abort the
// whole load: a half-built index risks silently wrong lookups.
type ParseError struct {
	File   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gtfs: malformed %s: %s", e.File, e.Reason)
}
