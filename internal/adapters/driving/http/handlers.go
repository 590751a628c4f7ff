package http

import (
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	callbackSuccessTmpl = template.Must(template.New("callback_success").Parse(callbackSuccessHTML))
	callbackErrorTmpl   = template.Must(template.New("callback_error").Parse(callbackErrorHTML))
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// CleanupResponse is the cron cleanup report
type CleanupResponse struct {
	Success   bool                  `json:"success"`
	Cleanup   *domain.CleanupReport `json:"cleanup"`
	Timestamp string                `json:"timestamp"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth flow endpoints

// handleBeginLogin mints a login attempt and returns the authorize URL
// the popup should navigate to.
func (s *Server) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	var req driving.BeginLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.BeginLogin(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "clientId, redirectUri, and a valid environment are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCallback receives the identity provider's redirect. It is the
// only handler that renders HTML: a minimal page that posts the outcome
// to window.opener and closes itself.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := driving.CallbackRequest{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	session, err := s.authService.CompleteCallback(r.Context(), req)
	if err != nil {
		s.renderCallbackError(w, callbackErrorMessage(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	s.renderCallbackPage(w, callbackSuccessTmpl, nil)
}

// callbackErrorMessage maps callback failures to the short messages the
// popup shows and relays to the opener.
func callbackErrorMessage(err error) string {
	var oauthErr *driving.OAuthError
	switch {
	case errors.As(err, &oauthErr):
		return oauthErr.Error()
	case errors.Is(err, domain.ErrInvalidState):
		return "login attempt expired or already used, please try again"
	case errors.Is(err, driving.ErrExchangeFailed):
		return "token exchange failed"
	default:
		return "login failed"
	}
}

func (s *Server) renderCallbackError(w http.ResponseWriter, message string) {
	s.renderCallbackPage(w, callbackErrorTmpl, map[string]string{"Error": message})
}

func (s *Server) renderCallbackPage(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleStatus answers the authoritative status question. Read-only and
// safe to call repeatedly; never fails for a merely-absent session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.authService.Status(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "status check failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleRefresh rotates the session's access token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.authService.Refresh(r.Context(), sessionID(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			writeError(w, http.StatusUnauthorized, "no active session")
		case errors.Is(err, domain.ErrNoRefreshToken):
			writeError(w, http.StatusBadRequest, "session has no refresh token")
		default:
			writeError(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogout destroys the session and clears the cookie. Always 200:
// the browser must end up logged out locally whatever the store said.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = s.authService.Logout(r.Context(), sessionID(r))

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Cron endpoint

// handleCronCleanup runs one janitor sweep. Bearer-secret protected when
// a secret is configured.
func (s *Server) handleCronCleanup(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret != "" {
		expected := "Bearer " + s.cronSecret
		provided := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	report, err := s.cleanupService.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, CleanupResponse{
		Success:   true,
		Cleanup:   report,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
