package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/marklens/marklens/internal/errors"
	"github.com/marklens/marklens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/version", handlers.VersionHandler)

	s.router.Route("/run", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/captcha", s.handleCaptchaImage)
		r.Post("/captcha", s.handleCaptchaSubmit)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/stop", s.handleStop)
		r.Get("/records", s.handleRecords)
		r.Get("/log", s.handleLog)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleCaptchaImage(w http.ResponseWriter, r *http.Request) {
	img := s.controller.CaptchaImage()
	if len(img) == 0 {
		HandleError(w, r, apperrors.NewNotFoundError("No captcha challenge is available"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

type captchaSubmission struct {
	Code string `json:"code"`
}

func (s *Server) handleCaptchaSubmit(w http.ResponseWriter, r *http.Request) {
	var body captchaSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		HandleError(w, r, apperrors.NewInvalidInputError("Request body must be JSON with a code field"))
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		HandleError(w, r, apperrors.NewInvalidInputError("Captcha code must not be empty"))
		return
	}

	if !s.controller.State.SubmitCaptcha(code) {
		HandleError(w, r, apperrors.NewConflictError("No pending captcha acquisition"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.controller.State.SetPaused(true)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.controller.State.SetPaused(false)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.controller.State.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Records())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.LogLines())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
