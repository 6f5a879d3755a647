package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/omriShneor/project_planner/internal/auth"
	"github.com/omriShneor/project_planner/internal/gcal"
	"github.com/omriShneor/project_planner/internal/ics"
	"github.com/omriShneor/project_planner/internal/processor"
)

const defaultUserName = "User"

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type indexResponse struct {
	LoggedIn    bool       `json:"logged_in"`
	User        *auth.User `json:"user"`
	UserName    string     `json:"user_name"`
	UserPicture *string    `json:"user_picture"`
	History     []string   `json:"history"`
}

// handleIndex reports login state, profile and the user's event titles,
// newest first
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp := indexResponse{UserName: defaultUserName, History: []string{}}

	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	resp.LoggedIn = true
	resp.User = user
	if user.Name != "" {
		resp.UserName = user.Name
	}
	if user.AvatarURL != "" {
		resp.UserPicture = &user.AvatarURL
	}

	titles, err := s.history.ListHistoryTitles(user.Email, 0)
	if err != nil {
		s.logger.Error("failed to list history", "user", user.Email, "error", err)
	} else {
		resp.History = titles
	}

	respondJSON(w, http.StatusOK, resp)
}

type processResponse struct {
	Status  string              `json:"status"`
	Events  []string            `json:"events"`
	Reply   string              `json:"reply,omitempty"`
	Message string              `json:"message,omitempty"`
	Created []gcal.CreatedEvent `json:"created,omitempty"`
}

// handleProcess turns a scheduling message into calendar events
// POST /api/process
// Body: { "message": "..." }
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, processResponse{Status: "error", Events: []string{}, Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondJSON(w, http.StatusBadRequest, processResponse{Status: "error", Events: []string{}, Message: "message is required"})
		return
	}

	cal, ok := s.userCalendar(w, r, user)
	if !ok {
		return
	}

	outcome, err := s.processor.ProcessMessage(r.Context(), user.Email, cal, req.Message)
	if errors.Is(err, processor.ErrBatchStopped) {
		respondJSON(w, http.StatusBadGateway, processResponse{
			Status:  "error",
			Events:  outcome.Titles,
			Message: outcome.Reply,
			Created: outcome.Created,
		})
		return
	}
	if err != nil {
		s.logger.Error("failed to process message", "user", user.Email, "error", err)
		respondJSON(w, http.StatusInternalServerError, processResponse{Status: "error", Events: []string{}, Message: processor.FailureReply})
		return
	}

	respondJSON(w, http.StatusOK, processResponse{
		Status:  "success",
		Events:  outcome.Titles,
		Reply:   outcome.Reply,
		Created: outcome.Created,
	})
}

// handleAsk answers a question about upcoming events
// POST /api/ask
// Body: { "question": "..." }
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"reply": "Please ask a question."})
		return
	}

	reply := s.processor.Ask(r.Context(), user.Email, req.Question)
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// handleHistoryICS exports the user's event history as an iCalendar file
// GET /api/history.ics
func (s *Server) handleHistoryICS(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())

	records, err := s.history.ListHistory(user.Email)
	if err != nil {
		s.logger.Error("failed to list history", "user", user.Email, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, records, s.location, time.Now()); err != nil {
		s.logger.Error("failed to encode history", "user", user.Email, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to export history")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planner-history.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleListCalendars lists the calendars the user's grant can see
// GET /api/calendars
func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())

	cal, ok := s.userCalendar(w, r, user)
	if !ok {
		return
	}

	calendars, err := cal.ListCalendars(r.Context())
	if err != nil {
		s.logger.Error("failed to list calendars", "user", user.Email, "error", err)
		respondError(w, http.StatusBadGateway, "failed to list calendars")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"calendars": calendars})
}

// userCalendar opens the caller's calendar, writing the error response
// itself when that is not possible.
func (s *Server) userCalendar(w http.ResponseWriter, r *http.Request, user *auth.User) (UserCalendar, bool) {
	ts, err := s.auth.TokenSource(r.Context(), user.ID)
	if errors.Is(err, auth.ErrNoToken) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	if errors.Is(err, auth.ErrMissingScope) {
		respondError(w, http.StatusForbidden, "Calendar access was not granted. Please sign in again and allow calendar access.")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to load google credentials", "user", user.Email, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load credentials")
		return nil, false
	}

	cal, err := s.calendars(r.Context(), ts)
	if err != nil {
		s.logger.Error("failed to open calendar", "user", user.Email, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to open calendar")
		return nil, false
	}
	return cal, true
}
