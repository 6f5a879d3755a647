// Package main provides a test server for exercising the planner front end.
// It runs with in-memory SQLite, a stand-in Google login and an in-memory
// calendar. The language model is real when an API key is configured.
//
// Usage:
//
//	GROQ_API_KEY=gsk-... go run ./cmd/testserver
//
// The server exposes additional test control endpoints:
//   - POST /api/test/reset - Delete all event history
//   - GET /api/test/calendar - List the events the fake calendar received
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/auth"
	"github.com/omriShneor/project_planner/internal/config"
	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/gcal"
	"github.com/omriShneor/project_planner/internal/llm"
	"github.com/omriShneor/project_planner/internal/logging"
	"github.com/omriShneor/project_planner/internal/processor"
	"github.com/omriShneor/project_planner/internal/server"
	"github.com/omriShneor/project_planner/internal/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting planner test server", "note", "in-memory SQLite, fake login and calendar")

	db, err := database.New(":memory:")
	if err != nil {
		logger.Error("failed to create database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	completer, err := llm.New(llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		Temperature: llm.Temperature(cfg.LLMTemperature),
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		logger.Warn("language model not configured, every message will come back as a chat error", "error", err)
		completer = offlineCompleter{}
	}

	loc, _ := timeutil.ResolveLocation(cfg.Timezone)
	proc := processor.New(
		extract.New(completer, extract.WithLogger(logger)),
		db,
		ask.New(completer, logger),
		processor.Config{Location: loc, LLMTimeout: cfg.LLMTimeout},
		processor.WithLogger(logger),
	)

	calendar := &memoryCalendar{}
	srv := server.New(server.Config{
		Auth:      newDevAuth(cfg.BaseURL),
		History:   db,
		Processor: proc,
		Calendars: func(ctx context.Context, ts oauth2.TokenSource) (server.UserCalendar, error) {
			return calendar, nil
		},
		Location: loc,
		Port:     cfg.HTTPPort,
		BaseURL:  cfg.BaseURL,
		Logger:   logger,
	})

	// Create test control mux
	testMux := http.NewServeMux()
	mainHandler := srv.Handler()

	testMux.HandleFunc("POST /api/test/reset", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("resetting test database")
		if _, err := db.Exec(`DELETE FROM event_history`); err != nil {
			http.Error(w, fmt.Sprintf("Failed to reset history: %v", err), http.StatusInternalServerError)
			return
		}
		calendar.reset()
		respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	testMux.HandleFunc("GET /api/test/calendar", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"events": calendar.list()})
	})

	// Fallback to main handler
	testMux.Handle("/", mainHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      testMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Printf("\nTest Server running on http://localhost:%d\n", cfg.HTTPPort)
		fmt.Println("\nTest endpoints:")
		fmt.Println("  POST /api/test/reset    - Delete all event history")
		fmt.Println("  GET  /api/test/calendar - Events the fake calendar received")
		fmt.Println("\nVisit /login to sign in as the test user. Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down test server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding JSON response", "error", err)
	}
}

// offlineCompleter stands in when no model credentials are configured.
type offlineCompleter struct{}

func (offlineCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("language model not configured")
}

// devAuth signs everyone in as one test user. Its consent URL points straight
// back at the callback with a fixed code.
type devAuth struct {
	baseURL  string
	user     *auth.User
	mu       sync.Mutex
	sessions map[string]bool
}

func newDevAuth(baseURL string) *devAuth {
	return &devAuth{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     &auth.User{ID: 1, GoogleID: "test-google-id", Email: "test@example.com", Name: "Test User"},
		sessions: make(map[string]bool),
	}
}

func (a *devAuth) AuthURL(state string) string {
	return a.baseURL + gcal.CallbackPath + "?code=dev&state=" + state
}

func (a *devAuth) ExchangeCodeAndLogin(ctx context.Context, code, deviceInfo string) (*auth.User, string, error) {
	if code != "dev" {
		return nil, "", fmt.Errorf("unexpected code %q", code)
	}
	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = true
	a.mu.Unlock()
	return a.user, token, nil
}

func (a *devAuth) ValidateSession(token string) (*auth.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.sessions[token] {
		return nil, auth.ErrInvalidSession
	}
	return a.user, nil
}

func (a *devAuth) Logout(token string) error {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
	return nil
}

func (a *devAuth) TokenSource(ctx context.Context, userID int64) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "dev"}), nil
}

func (a *devAuth) RevokeUser(ctx context.Context, userID int64) error {
	a.mu.Lock()
	a.sessions = make(map[string]bool)
	a.mu.Unlock()
	return nil
}

// memoryCalendar records events instead of sending them to Google.
type memoryCalendar struct {
	mu     sync.Mutex
	events []gcal.CreatedEvent
}

func (c *memoryCalendar) CreateEvent(ctx context.Context, ev extract.Event) (*gcal.CreatedEvent, error) {
	start := ev.Date
	if ev.StartTime != "" {
		start += "T" + ev.StartTime + ":00"
	}
	created := gcal.CreatedEvent{ID: uuid.NewString(), Summary: ev.Title, StartDisplay: start, Location: ev.Location}

	c.mu.Lock()
	c.events = append(c.events, created)
	c.mu.Unlock()
	return &created, nil
}

func (c *memoryCalendar) ListCalendars(ctx context.Context) ([]gcal.CalendarInfo, error) {
	return []gcal.CalendarInfo{{ID: "primary", Summary: "Test Calendar", Primary: true, AccessRole: "owner"}}, nil
}

func (c *memoryCalendar) list() []gcal.CreatedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gcal.CreatedEvent{}, c.events...)
}

func (c *memoryCalendar) reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
