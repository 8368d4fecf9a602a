package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type healthResponse struct {
	Status  string `json:"status"`
	Ticker  string `json:"ticker"`
	Polls   int    `json:"polls"`
	Uptime  string `json:"uptime"`
	HasData bool   `json:"has_data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	polls, uptime := s.state.Stats()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Ticker:  s.ticker,
		Polls:   polls,
		Uptime:  uptime.Round(time.Second).String(),
		HasData: s.state.Snapshot() != nil,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Alerts())
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Signal)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	if snap == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Diagnostics)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}
