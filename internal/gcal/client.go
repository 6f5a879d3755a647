package gcal

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/omriShneor/project_planner/internal/extract"
)

const DefaultCalendarID = "primary"

// Client wraps the Google Calendar API for one user's credentials.
type Client struct {
	service    *calendar.Service
	calendarID string
	timezone   string
}

// CreatedEvent is the provider's record of an inserted event.
type CreatedEvent struct {
	ID           string `json:"id"`
	Summary      string `json:"summary"`
	StartDisplay string `json:"start"`
	Location     string `json:"location,omitempty"`
	HTMLLink     string `json:"html_link,omitempty"`
}

// NewClient builds a Calendar client that authenticates every call through ts.
// Extra options are appended, which lets tests point it at a local server.
func NewClient(ctx context.Context, ts oauth2.TokenSource, calendarID, timezone string, opts ...option.ClientOption) (*Client, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, opts...)
	service, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
		timezone:   timezone,
	}, nil
}

// CreateEvent inserts one event. It makes exactly one API call and does not
// retry.
func (c *Client) CreateEvent(ctx context.Context, ev extract.Event) (*CreatedEvent, error) {
	created, err := c.service.Events.Insert(c.calendarID, BuildEvent(ev, c.timezone)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event %q: %w", ev.Title, err)
	}

	return &CreatedEvent{
		ID:           created.Id,
		Summary:      created.Summary,
		StartDisplay: startDisplay(created),
		Location:     created.Location,
		HTMLLink:     created.HtmlLink,
	}, nil
}
