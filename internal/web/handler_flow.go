package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/flow"
)

// handleIndex renders the caller's current screen. Visitors without a live
// session see the upload screen; their session is created on first upload.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := flow.ViewOf(flow.Empty{})
	if sess, ok := s.existingSession(r); ok {
		view = sess.Controller.View()
	}
	if err := s.renderView(w, http.StatusOK, view, ""); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleChooseMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	mode, err := domain.ParseMode(r.FormValue("mode"))
	if err != nil {
		if err := s.renderView(w, http.StatusBadRequest, sess.Controller.View(), "please choose an analysis mode"); err != nil {
			s.logger.Error("render page failed", "session_id", sess.ID, "error", err)
		}
		return
	}

	requestID, err := sess.Controller.ChooseMode(r.Context(), mode)
	switch {
	case errors.Is(err, flow.ErrInvalidTransition):
		// Double submits and stale tabs land here; show whatever is current.
		s.logger.Debug("mode choice ignored", "session_id", sess.ID, "error", err)
	case err != nil:
		http.Error(w, "failed to start analysis", http.StatusInternalServerError)
		s.logger.Error("choose mode failed", "session_id", sess.ID, "error", err)
		return
	default:
		s.logger.Info("analysis requested", "session_id", sess.ID, "request_id", requestID, "mode", mode)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.existingSession(r); ok {
		sess.Controller.Reset()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
