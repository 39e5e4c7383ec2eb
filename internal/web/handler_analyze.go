package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/platelens/platelens/internal/llm"
	"github.com/platelens/platelens/internal/service"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.service.Analyze(r.Context(), id)
	if err != nil {
		s.serviceError(w, "analyze meal", id, err)
		return
	}
	s.respondStage(w, r, detail)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	answer := strings.TrimSpace(r.FormValue("answer"))
	if answer == "" {
		http.Error(w, "answer required", http.StatusBadRequest)
		return
	}

	detail, err := s.service.Answer(r.Context(), id, answer)
	if err != nil {
		s.serviceError(w, "submit answer", id, err)
		return
	}
	s.respondStage(w, r, detail)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.service.Finalize(r.Context(), id)
	if err != nil {
		s.serviceError(w, "finalize estimate", id, err)
		return
	}
	s.respondStage(w, r, detail)
}

// respondStage renders the stage partial for HTMX requests and redirects
// plain form posts back to the session page.
func (s *Server) respondStage(w http.ResponseWriter, r *http.Request, detail *service.SessionDetail) {
	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/stage.html", detail); err != nil {
			log.Printf("render partial error: %v", err)
		}
		return
	}
	http.Redirect(w, r, "/sessions/"+detail.ID, http.StatusSeeOther)
}

// serviceError maps service failures onto HTTP statuses. Model auth and
// transport failures surface as 502 so the user can tell the problem is
// upstream of this app.
func (s *Server) serviceError(w http.ResponseWriter, op, sessionID string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, service.ErrWrongStage):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, llm.ErrAuthentication):
		http.Error(w, "the vision model rejected our API key, check the server configuration", http.StatusBadGateway)
		s.logger.Error("model authentication failed", "op", op, "session_id", sessionID, "error", err)
	case errors.Is(err, llm.ErrTransport):
		http.Error(w, "could not reach the vision model, try again in a moment", http.StatusBadGateway)
		s.logger.Error("model unreachable", "op", op, "session_id", sessionID, "error", err)
	default:
		http.Error(w, "failed to "+op, http.StatusInternalServerError)
		s.logger.Error("request failed", "op", op, "session_id", sessionID, "error", err)
	}
}
