package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/gcal"
	"github.com/omriShneor/project_planner/internal/notify"
)

const (
	defaultLLMTimeout      = 60 * time.Second
	defaultCalendarTimeout = 30 * time.Second

	// SavedReply is shown after every event of a message was added.
	SavedReply = "Saved to Calendar & Database."
	// FailureReply is the generic message for a batch that stopped early.
	FailureReply = "Something went wrong while adding your events to the calendar."
	// AskFailureReply hides store and model errors from the asker.
	AskFailureReply = "I'm having trouble accessing the database."
)

// ErrBatchStopped is returned when a calendar or history write failed
// partway through a message.
var ErrBatchStopped = errors.New("event batch stopped")

// EventExtractor turns free text into events or a conversational reply.
type EventExtractor interface {
	Extract(ctx context.Context, userText string, ref time.Time) extract.Result
}

// Calendar creates events for one user.
type Calendar interface {
	CreateEvent(ctx context.Context, ev extract.Event) (*gcal.CreatedEvent, error)
}

// HistoryStore records created events and reads them back for questions.
type HistoryStore interface {
	InsertHistory(rec *database.HistoryRecord) (int64, error)
	ListUpcomingHistory(email string, from, to time.Time) ([]database.HistoryRecord, error)
}

// QuestionAnswerer answers a question over a set of history rows.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, rows []ask.Row, now time.Time) (string, error)
}

// Notifier is told about events once a message has been handled.
type Notifier interface {
	NotifyEventsAdded(ctx context.Context, recipient string, items []notify.Item)
}

type Config struct {
	Location        *time.Location
	LLMTimeout      time.Duration
	CalendarTimeout time.Duration
}

// Processor runs the extract, create, record pipeline for scheduling
// messages and the resolve, read, answer pipeline for questions.
type Processor struct {
	extractor EventExtractor
	history   HistoryStore
	answerer  QuestionAnswerer
	notifier  Notifier
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Processor)

func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// New creates a new message processor
func New(extractor EventExtractor, history HistoryStore, answerer QuestionAnswerer, cfg Config, opts ...Option) *Processor {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = defaultLLMTimeout
	}
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = defaultCalendarTimeout
	}

	p := &Processor{
		extractor: extractor,
		history:   history,
		answerer:  answerer,
		config:    cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome is what a scheduling message produced.
type Outcome struct {
	Reply   string
	Chat    bool
	Titles  []string
	Created []gcal.CreatedEvent
}

// ProcessMessage extracts the events in text and adds them one at a time.
// Each event gets its history row right after the calendar accepts it. The
// first failure stops the batch: earlier events stay created and recorded,
// later ones are never attempted. The returned Outcome is always usable as a
// reply, even alongside ErrBatchStopped.
func (p *Processor) ProcessMessage(ctx context.Context, userEmail string, cal Calendar, text string) (*Outcome, error) {
	ref := p.now().In(p.config.Location)

	extractCtx, cancel := context.WithTimeout(ctx, p.config.LLMTimeout)
	result := p.extractor.Extract(extractCtx, text, ref)
	cancel()

	if result.Kind == extract.KindChat {
		p.logger.Info("message answered as chat", "user", userEmail, "text", truncate(text, 50))
		return &Outcome{Reply: result.Reply, Chat: true, Titles: []string{}}, nil
	}

	outcome := &Outcome{Titles: []string{}}
	for i, ev := range result.Events {
		created, err := p.createEvent(ctx, cal, ev)
		if err != nil {
			p.logger.Error("calendar create failed", "user", userEmail, "event", ev.Title,
				"index", i, "of", len(result.Events), "error", err)
			p.finish(ctx, userEmail, outcome)
			outcome.Reply = failureReply(outcome.Titles)
			return outcome, fmt.Errorf("%w: %w", ErrBatchStopped, err)
		}
		p.logger.Info("event created", "user", userEmail, "event", created.Summary, "start", created.StartDisplay)

		if _, err := p.history.InsertHistory(historyRecord(userEmail, ev, created)); err != nil {
			p.logger.Error("history write failed", "user", userEmail, "event", ev.Title, "error", err)
			outcome.Created = append(outcome.Created, *created)
			outcome.Titles = append(outcome.Titles, ev.Title)
			p.finish(ctx, userEmail, outcome)
			outcome.Reply = failureReply(outcome.Titles)
			return outcome, fmt.Errorf("%w: %w", ErrBatchStopped, err)
		}

		outcome.Created = append(outcome.Created, *created)
		outcome.Titles = append(outcome.Titles, ev.Title)
	}

	p.finish(ctx, userEmail, outcome)
	outcome.Reply = SavedReply
	return outcome, nil
}

func (p *Processor) createEvent(ctx context.Context, cal Calendar, ev extract.Event) (*gcal.CreatedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.CalendarTimeout)
	defer cancel()
	return cal.CreateEvent(ctx, ev)
}

// finish hands whatever was created to the notifier.
func (p *Processor) finish(ctx context.Context, userEmail string, outcome *Outcome) {
	if p.notifier == nil || len(outcome.Created) == 0 {
		return
	}
	items := make([]notify.Item, len(outcome.Created))
	for i, c := range outcome.Created {
		items[i] = notify.Item{Title: c.Summary, Start: c.StartDisplay, Location: c.Location, Link: c.HTMLLink}
	}
	p.notifier.NotifyEventsAdded(ctx, userEmail, items)
}

func historyRecord(userEmail string, ev extract.Event, created *gcal.CreatedEvent) *database.HistoryRecord {
	return &database.HistoryRecord{
		UserEmail:       userEmail,
		Title:           ev.Title,
		RawInput:        ev.RawInput,
		Date:            ev.Date,
		Time:            ev.StartTime,
		EndTime:         ev.EndTime,
		Location:        ev.Location,
		Recurring:       string(ev.Recurring),
		CalendarEventID: created.ID,
	}
}

func failureReply(added []string) string {
	if len(added) == 0 {
		return FailureReply
	}
	return fmt.Sprintf("%s Already added: %s.", FailureReply, strings.Join(added, ", "))
}

// truncate shortens a string to maxLen characters
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
