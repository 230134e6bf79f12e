package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/halduskeskus/postiljon/internal/auth"
	"github.com/halduskeskus/postiljon/internal/config"
	"github.com/halduskeskus/postiljon/internal/dispatch"
	"github.com/halduskeskus/postiljon/internal/pkg/logger"
)

// Handlers bundles the HTTP handlers with their collaborators.
type Handlers struct {
	pipeline *dispatch.Pipeline
	auth     *auth.Manager
}

// NewHandlers creates the handler set.
func NewHandlers(pipeline *dispatch.Pipeline, authManager *auth.Manager) *Handlers {
	return &Handlers{pipeline: pipeline, auth: authManager}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login checks client credentials and opens a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(req.Login, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid login or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.auth.SetSessionCookie(w, token)
	logger.Info("client logged in", "client", req.Login)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout closes the current session, if any.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.auth.CookieName()); err == nil {
		h.auth.Logout(cookie.Value)
	}
	h.auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dashboardView is the client-facing slice of the configuration
// record. Credentials and SMTP secrets never leave the server.
type dashboardView struct {
	Login        string `json:"login"`
	DisplayName  string `json:"display_name"`
	SheetName    string `json:"sheet_name"`
	Active       bool   `json:"active"`
	ControlEmail string `json:"control_email"`
	EmailSubject string `json:"email_subject"`
}

// Dashboard returns the authenticated client's own settings.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	client, ok := auth.ClientFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, dashboardView{
		Login:        client.Login,
		DisplayName:  client.DisplayName,
		SheetName:    client.SheetName,
		Active:       client.Active,
		ControlEmail: client.ControlEmail,
		EmailSubject: client.EmailSubject,
	})
}

// Preview reconciles rows against files without sending anything.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	client, ok := auth.ClientFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := h.pipeline.Preview(r.Context(), client)
	if err != nil {
		writePipelineError(w, client, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Send executes the full dispatch run for the authenticated client.
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	client, ok := auth.ClientFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	outcome, err := h.pipeline.Execute(r.Context(), client)
	if err != nil && outcome == nil {
		writePipelineError(w, client, err)
		return
	}
	// A strict-report failure still carries a finalized outcome.
	writeJSON(w, http.StatusOK, outcome)
}

func writePipelineError(w http.ResponseWriter, client *config.Client, err error) {
	logger.Error("pipeline failed", "client", client.Login, "error", err.Error())

	var fetchErr *dispatch.RemoteFetchError
	if errors.As(err, &fetchErr) {
		writeError(w, http.StatusBadGateway, "upstream fetch failed: "+fetchErr.Op)
		return
	}
	var valErr *config.ValidationError
	if errors.As(err, &valErr) {
		writeError(w, http.StatusUnprocessableEntity, valErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "dispatch failed")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
