package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/omriShneor/project_planner/internal/auth"
	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/gcal"
	"github.com/omriShneor/project_planner/internal/processor"
)

const defaultWriteTimeout = 2 * time.Minute

// Authenticator is the identity side of the server: Google login, sessions
// and the stored Google grant.
type Authenticator interface {
	auth.SessionValidator
	AuthURL(state string) string
	ExchangeCodeAndLogin(ctx context.Context, code, deviceInfo string) (*auth.User, string, error)
	Logout(token string) error
	TokenSource(ctx context.Context, userID int64) (oauth2.TokenSource, error)
	RevokeUser(ctx context.Context, userID int64) error
}

// UserCalendar is one user's calendar as the handlers use it.
type UserCalendar interface {
	processor.Calendar
	ListCalendars(ctx context.Context) ([]gcal.CalendarInfo, error)
}

// CalendarFactory opens a user's calendar with their token source.
type CalendarFactory func(ctx context.Context, ts oauth2.TokenSource) (UserCalendar, error)

// HistoryReader is the read side of the event history used by the index and
// the export.
type HistoryReader interface {
	ListHistoryTitles(email string, limit int) ([]string, error)
	ListHistory(email string) ([]database.HistoryRecord, error)
}

type Server struct {
	auth           Authenticator
	authMiddleware *auth.Middleware
	history        HistoryReader
	processor      *processor.Processor
	calendars      CalendarFactory
	location       *time.Location
	baseURL        string
	secureCookie   bool
	logger         *slog.Logger
	httpSrv        *http.Server
	port           int
}

// Config holds everything the server needs
type Config struct {
	Auth         Authenticator
	History      HistoryReader
	Processor    *processor.Processor
	Calendars    CalendarFactory
	Location     *time.Location
	Port         int
	BaseURL      string
	SecureCookie bool
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	s := &Server{
		auth:           cfg.Auth,
		authMiddleware: auth.NewMiddleware(cfg.Auth),
		history:        cfg.History,
		processor:      cfg.Processor,
		calendars:      cfg.Calendars,
		location:       cfg.Location,
		baseURL:        cfg.BaseURL,
		secureCookie:   cfg.SecureCookie,
		logger:         cfg.Logger,
		port:           cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.recoverMiddleware(s.loggingMiddleware(s.corsMiddleware(mux))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Index
	mux.Handle("GET /{$}", s.authMiddleware.OptionalAuth(http.HandlerFunc(s.handleIndex)))

	// Login flow
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /login/qr", s.handleLoginQR)
	mux.HandleFunc("GET "+gcal.CallbackPath, s.handleOAuthCallback)
	mux.HandleFunc("GET /logout", s.handleLogoutRedirect)
	mux.HandleFunc("POST /logout", s.handleLogout)

	// Scheduling API
	unauthorized := http.HandlerFunc(rejectUnauthorized)
	mux.Handle("POST /api/process", s.authMiddleware.RequireAuth(unauthorized, http.HandlerFunc(s.handleProcess)))
	mux.Handle("POST /api/ask", s.authMiddleware.RequireAuth(http.HandlerFunc(rejectAsk), http.HandlerFunc(s.handleAsk)))
	mux.Handle("GET /api/history.ics", s.authMiddleware.RequireAuth(unauthorized, http.HandlerFunc(s.handleHistoryICS)))
	mux.Handle("GET /api/calendars", s.authMiddleware.RequireAuth(unauthorized, http.HandlerFunc(s.handleListCalendars)))
	mux.Handle("POST /api/auth/revoke", s.authMiddleware.RequireAuth(unauthorized, http.HandlerFunc(s.handleRevoke)))
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", fmt.Sprintf("http://localhost:%d", s.port))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
