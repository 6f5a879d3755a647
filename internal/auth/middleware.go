package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "planner_session"

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(token string) (*User, error)
}

// Middleware provides HTTP middleware for authentication
type Middleware struct {
	service SessionValidator
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(service SessionValidator) *Middleware {
	return &Middleware{
		service: service,
	}
}

// RequireAuth runs next only for a valid session; everyone else gets reject.
// No downstream work happens for rejected requests.
func (m *Middleware) RequireAuth(reject http.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			reject.ServeHTTP(w, r)
			return
		}

		user, err := m.service.ValidateSession(token)
		if err != nil {
			reject.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), user)))
	})
}

// OptionalAuth attaches the user when a valid session is present.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := SessionToken(r); token != "" {
			if user, err := m.service.ValidateSession(token); err == nil {
				r = r.WithContext(SetUserInContext(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionToken reads the session cookie, falling back to a Bearer header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return extractBearerToken(r)
}

// extractBearerToken expects format: "Bearer <token>"
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(SessionDuration),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
