package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/flow"
)

type apiError struct {
	Error string `json:"error"`
}

// handleAPIAnalyze runs one analysis synchronously and answers with the
// Analysis as JSON. It does not touch browser session state.
func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	uri, status, err := s.readUpload(w, r)
	if err != nil {
		s.writeJSON(w, status, apiError{Error: err.Error()})
		return
	}

	mode, err := domain.ParseMode(r.FormValue("mode"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID, "mode", mode)
	start := time.Now()

	analysis, err := s.analyzer.Analyze(r.Context(), uri, mode)
	if err != nil {
		logger.Error("api analysis failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		s.writeJSON(w, http.StatusBadGateway, apiError{Error: flow.FailureMessage})
		return
	}

	logger.Info("api analysis complete", "duration_ms", time.Since(start).Milliseconds())
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
