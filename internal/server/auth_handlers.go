package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/omriShneor/project_planner/internal/auth"
)

const (
	stateCookieName = "planner_oauth_state"
	stateCookieTTL  = 10 * time.Minute
	qrSize          = 256
)

// handleLogin starts the Google consent flow
// GET /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieTTL),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.auth.AuthURL(state), http.StatusFound)
}

// handleLoginQR renders the login URL as a QR code so a phone can sign in
// GET /login/qr
func (s *Server) handleLoginQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(s.baseURL+"/login", qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("failed to render login QR code", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// handleOAuthCallback completes login and opens a session
// GET /oauth2callback?state=...&code=...
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		s.logger.Warn("oauth consent denied", "error", errParam)
		respondError(w, http.StatusBadRequest, "authorization denied: "+errParam)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		respondError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	s.clearStateCookie(w)

	code := query.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	user, sessionToken, err := s.auth.ExchangeCodeAndLogin(r.Context(), code, r.UserAgent())
	if err != nil {
		s.logger.Error("login failed", "error", err)
		respondError(w, http.StatusBadGateway, "login failed")
		return
	}

	s.logger.Info("login completed", "user", user.Email)
	auth.SetSessionCookie(w, sessionToken, s.secureCookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// endSession deletes the caller's session, if any, and clears the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if token := auth.SessionToken(r); token != "" {
		if err := s.auth.Logout(token); err != nil {
			s.logger.Warn("failed to delete session", "error", err)
		}
	}
	auth.ClearSessionCookie(w, s.secureCookie)
}

// handleLogoutRedirect logs out a browser and returns it to the index
// GET /logout
func (s *Server) handleLogoutRedirect(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout logs out an API client
// POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleRevoke withdraws the Google grant and signs the user out everywhere
// POST /api/auth/revoke
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())

	err := s.auth.RevokeUser(r.Context(), user.ID)
	if err != nil && !errors.Is(err, auth.ErrNoToken) {
		s.logger.Error("failed to revoke google access", "user", user.Email, "error", err)
		respondError(w, http.StatusBadGateway, "failed to revoke access")
		return
	}

	s.endSession(w, r)
	s.logger.Info("google access revoked", "user", user.Email)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
