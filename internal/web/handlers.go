package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Positions())
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.engine.CloseManual(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to close position", zap.String("id", id), zap.Error(err))
		http.Error(w, "Failed to close position", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Position not found or already closed", http.StatusNotFound)
		return
	}
	s.writeJSON(w, record)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	if s.repo != nil {
		records, err := s.repo.ListTradeRecords(r.Context(), limit)
		if err != nil {
			s.logger.Error("Failed to list trades", zap.Error(err))
			http.Error(w, "Failed to list trades", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, records)
		return
	}
	s.writeJSON(w, s.engine.TradeHistory())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Report())
}

func (s *Server) handlePortfolioRisk(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.PortfolioRisk())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Stats())
}
