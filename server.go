package traintrack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traintrack/gtfs"
	"traintrack/gtfsrt"
	"traintrack/tracker"
)

// Server exposes the tracker over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *tracker.Tracker
	feeds      *gtfsrt.FeedCache
}

func NewServer(port int, trk *tracker.Tracker, feeds *gtfsrt.FeedCache) *Server {
	s := &Server{tracker: trk, feeds: feeds}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/station", s.handleStation)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", s.httpServer.Addr)
}

func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	} else {
		log.Printf("server shut down successfully")
	}
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	data, err := s.tracker.GetStationData(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, gtfs.ErrNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("no station matching %q", query))
		case errors.Is(err, gtfsrt.ErrFeedUnavailable):
			writeError(w, http.StatusServiceUnavailable, "realtime feeds unavailable")
		default:
			log.Printf("station query %q failed: %v", query, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, data)
}
