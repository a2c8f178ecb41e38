// Package gtfsrt maintains one merged, TTL-cached view of the configured
// GTFS-Realtime feeds.
//
// Each refresh fetches every feed source independently and best-effort: a
// source that times out or fails to decode contributes nothing and is
// recorded, but does not abort the refresh. The merged snapshot replaces the
// previous one atomically; readers always observe a complete old or new
// entry. Only when every source fails and no prior snapshot exists does the
// cache surface ErrFeedUnavailable.
package gtfsrt
