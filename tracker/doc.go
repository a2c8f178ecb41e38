// Package tracker answers station queries by joining the static station
// index with the realtime feed cache. Station resolution is memoized; feed
// data is always read from the cache's current snapshot, never fetched
// directly.
package tracker
