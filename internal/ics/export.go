// Package ics renders event history as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/timeutil"
)

const productID = "-//Project Planner//History Export//EN"

// Encode writes records as one VCALENDAR. Timed records are placed in loc;
// records without a usable clock become all-day events.
func Encode(w io.Writer, records []database.HistoryRecord, loc *time.Location, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", "Planner history")

	for _, rec := range records {
		ve, err := toEvent(rec, loc, now)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, ve)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// UID is stable per history row so re-imports update instead of duplicate.
func UID(rec database.HistoryRecord) string {
	name := fmt.Sprintf("%s/%d", rec.UserEmail, rec.ID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@project-planner"
}

func toEvent(rec database.HistoryRecord, loc *time.Location, now time.Time) (*ical.Component, error) {
	day, err := timeutil.ParseDate(rec.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("history %d: %w", rec.ID, err)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(rec))
	ve.Props.SetText(ical.PropSummary, rec.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	if !rec.CreatedAt.IsZero() {
		ve.Props.SetDateTime(ical.PropCreated, rec.CreatedAt.UTC())
	}
	if rec.RawInput != "" {
		ve.Props.SetText(ical.PropDescription, rec.RawInput)
	}
	if rec.Location != "" {
		ve.Props.SetText(ical.PropLocation, rec.Location)
	}

	start, end, timed := bounds(rec, day)
	if timed {
		ve.Props.SetDateTime(ical.PropDateTimeStart, start)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
	} else {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(start)
		ve.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(end)
		ve.Props.Set(dtend)
	}

	if freq, ok := extract.Recurrence(rec.Recurring).Frequency(); ok {
		ve.Props.SetRecurrenceRule(&rrule.ROption{Freq: freq})
	}
	return ve, nil
}

// bounds mirrors the calendar payload: both clocks make a timed event that
// may run past midnight, anything else covers the whole day.
func bounds(rec database.HistoryRecord, day time.Time) (time.Time, time.Time, bool) {
	startClock, okStart := timeutil.NormalizeClock(rec.Time)
	endClock, okEnd := timeutil.NormalizeClock(rec.EndTime)
	if !okStart || !okEnd {
		return day, day.AddDate(0, 0, 1), false
	}

	start := atClock(day, startClock)
	end := atClock(day, endClock)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, true
}

func atClock(day time.Time, clock string) time.Time {
	t, _ := time.Parse(timeutil.ClockLayout, clock)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}
