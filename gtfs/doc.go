/*
Package gtfs builds a read-only station catalogue from GTFS static data.

The index is populated once at process start from stops.txt, routes.txt and
stop_times.txt, and is thereafter immutable and safe for concurrent reads
without synchronization.

# Basic Usage

	idx, err := gtfs.Load(cfg.GTFS)
	if err != nil {
	    log.Fatal(err)
	}
	station, err := idx.Resolve("Times Square")

Load is all-or-nothing: a half-built index is never returned. When the remote
source is unreachable, Load falls back to a local zip and then to a gob cache
of a previously built index before giving up with ErrDataUnavailable.
*/
package gtfs
