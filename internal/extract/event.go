package extract

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/omriShneor/project_planner/internal/timeutil"
)

const (
	DefaultTitle = "Untitled Event"

	maxDurationMinutes = 24 * 60
)

// Recurrence is one of the repeat cadences the calendar payload understands.
type Recurrence string

const (
	RecurNone    Recurrence = ""
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// ParseRecurrence maps free text onto a known cadence; anything else is none.
func ParseRecurrence(value string) Recurrence {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(value))); r {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return r
	default:
		return RecurNone
	}
}

// Frequency maps the cadence onto an RRULE frequency.
func (r Recurrence) Frequency() (rrule.Frequency, bool) {
	switch r {
	case RecurDaily:
		return rrule.DAILY, true
	case RecurWeekly:
		return rrule.WEEKLY, true
	case RecurMonthly:
		return rrule.MONTHLY, true
	default:
		return 0, false
	}
}

// Event is one scheduling item read out of a user's message.
type Event struct {
	Title           string     `json:"title"`
	Date            string     `json:"date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	Location        string     `json:"location"`
	Notes           string     `json:"notes"`
	RawInput        string     `json:"raw_input"`
	Recurring       Recurrence `json:"recurring"`
}

// Timed reports whether both clock values are present.
func (e Event) Timed() bool {
	return e.StartTime != "" && e.EndTime != ""
}

// Normalize clamps model-supplied fields to the formats downstream code
// relies on. rawInput replaces whatever the model echoed back.
func (e *Event) Normalize(rawInput string, ref time.Time) {
	e.RawInput = rawInput

	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		e.Title = DefaultTitle
	}
	e.Location = strings.TrimSpace(e.Location)
	e.Notes = strings.TrimSpace(e.Notes)

	if d, err := timeutil.ParseDate(e.Date, ref.Location()); err == nil {
		e.Date = d.Format(timeutil.DateLayout)
	} else {
		e.Date = ref.Format(timeutil.DateLayout)
	}

	e.StartTime, _ = timeutil.NormalizeClock(e.StartTime)
	e.EndTime, _ = timeutil.NormalizeClock(e.EndTime)

	// A duration must fit inside one day for the clock arithmetic below.
	if e.DurationMinutes != nil && (*e.DurationMinutes <= 0 || *e.DurationMinutes >= maxDurationMinutes) {
		e.DurationMinutes = nil
	}
	if e.DurationMinutes != nil {
		switch {
		case e.StartTime != "" && e.EndTime == "":
			e.EndTime, _ = timeutil.AddMinutes(e.StartTime, *e.DurationMinutes)
		case e.StartTime == "" && e.EndTime != "":
			e.StartTime, _ = timeutil.AddMinutes(e.EndTime, -*e.DurationMinutes)
		}
	}

	e.Recurring = ParseRecurrence(string(e.Recurring))
}
