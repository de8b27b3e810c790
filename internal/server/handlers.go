package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

const notFoundMessage = "Demo not found"

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleDemos(w http.ResponseWriter, r *http.Request) {
	units := s.registry.List()
	if s.metrics != nil {
		s.metrics.SetDemoCount(len(units))
	}
	writeJSON(w, http.StatusOK, units)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.gateway.Run(r.Context(), id)
	if errors.Is(err, registry.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFoundMessage})
		return
	}
	if err != nil {
		// Gateway maps every execution failure into the result.
		s.logger.Error("run_failed_unexpectedly", "demo_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMTime(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	record, err := s.oracle.ModTime(id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		s.recordPoll(metrics.PollNotFound)
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFoundMessage})
	case err != nil:
		s.recordPoll(metrics.PollError)
		s.logger.Warn("mtime_stat_failed", "demo_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		s.recordPoll(metrics.PollOK)
		writeJSON(w, http.StatusOK, record)
	}
}

func (s *Server) recordPoll(result string) {
	if s.metrics != nil {
		s.metrics.RecordPoll(result)
	}
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
