package gcal

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"

	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/timeutil"
)

// Reminders applied to every timed event.
var defaultReminders = []*calendar.EventReminder{
	{Method: "email", Minutes: 30},
	{Method: "popup", Minutes: 10},
}

// RecurrenceRule returns the RRULE line for a recognized cadence.
func RecurrenceRule(r extract.Recurrence) (string, bool) {
	freq, ok := r.Frequency()
	if !ok {
		return "", false
	}
	opt := rrule.ROption{Freq: freq}
	return "RRULE:" + opt.RRuleString(), true
}

// BuildEvent maps an extracted event onto the Calendar API payload. Events
// with both clock values become timed events in timezone; all others are
// all-day.
func BuildEvent(ev extract.Event, timezone string) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Title,
		Description: description(ev),
		Location:    ev.Location,
	}

	if ev.Timed() {
		endDate := ev.Date
		if ev.EndTime <= ev.StartTime {
			endDate = nextDay(ev.Date)
		}
		out.Start = &calendar.EventDateTime{
			DateTime: ev.Date + "T" + ev.StartTime + ":00",
			TimeZone: timezone,
		}
		out.End = &calendar.EventDateTime{
			DateTime: endDate + "T" + ev.EndTime + ":00",
			TimeZone: timezone,
		}
		out.Reminders = &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       defaultReminders,
			ForceSendFields: []string{"UseDefault"},
		}
	} else {
		// End date is exclusive for all-day events.
		out.Start = &calendar.EventDateTime{Date: ev.Date}
		out.End = &calendar.EventDateTime{Date: nextDay(ev.Date)}
	}

	if rule, ok := RecurrenceRule(ev.Recurring); ok {
		out.Recurrence = []string{rule}
	}
	return out
}

func description(ev extract.Event) string {
	if ev.Notes != "" {
		return ev.Notes
	}
	return ev.RawInput
}

func nextDay(date string) string {
	d, err := time.Parse(timeutil.DateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, 1).Format(timeutil.DateLayout)
}

// startDisplay is what the provider reports as the effective start.
func startDisplay(ev *calendar.Event) string {
	if ev == nil || ev.Start == nil {
		return ""
	}
	if ev.Start.DateTime != "" {
		return ev.Start.DateTime
	}
	return strings.TrimSpace(ev.Start.Date)
}
