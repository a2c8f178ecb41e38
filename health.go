package traintrack

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status              string `json:"status"`
	Stations            int    `json:"stations"`
	LatestSnapshotEpoch int64  `json:"latest_snapshot_epoch"`
	SnapshotStale       bool   `json:"snapshot_stale"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Stations: s.tracker.IndexSize(),
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if snap, err := s.feeds.GetSnapshot(ctx, false); err == nil {
		resp.LatestSnapshotEpoch = snap.FetchedAt.Unix()
		resp.SnapshotStale = snap.Stale
	} else {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
