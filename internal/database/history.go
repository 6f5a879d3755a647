package database

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/omriShneor/project_planner/internal/timeutil"
)

const (
	defaultHistoryTitle = "Untitled Event"
	defaultHistoryTime  = "00:00"
)

// HistoryRecord is one event the user had added to their calendar.
type HistoryRecord struct {
	ID              int64
	UserEmail       string
	Title           string
	RawInput        string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM, "00:00" for all-day events
	EndTime         string
	Location        string
	Recurring       string
	CalendarEventID string
	CreatedAt       time.Time
}

const historyColumns = `id, user_email, event_title, COALESCE(raw_input, ''), COALESCE(event_date, ''),
	COALESCE(event_time, ''), COALESCE(end_time, ''), COALESCE(location, ''), recurring,
	COALESCE(calendar_event_id, ''), created_at`

// InsertHistory appends a record. Missing title and time get the same
// placeholders the calendar flow shows the user.
func (d *DB) InsertHistory(rec *HistoryRecord) (int64, error) {
	if rec.UserEmail == "" {
		return 0, fmt.Errorf("history record has no user")
	}
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = defaultHistoryTitle
	}
	if rec.Time == "" {
		rec.Time = defaultHistoryTime
	}

	result, err := d.Exec(`
		INSERT INTO event_history
			(user_email, event_title, raw_input, event_date, event_time, end_time, location, recurring, calendar_event_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.UserEmail, rec.Title, rec.RawInput, rec.Date, rec.Time, nullIfEmpty(rec.EndTime),
		nullIfEmpty(rec.Location), rec.Recurring, nullIfEmpty(rec.CalendarEventID))
	if err != nil {
		return 0, fmt.Errorf("failed to insert history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get history id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// ListHistoryTitles returns the user's event titles, newest first.
func (d *DB) ListHistoryTitles(email string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.Query(`
		SELECT event_title FROM event_history
		WHERE user_email = ?
		ORDER BY id DESC
		LIMIT ?
	`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// ListHistory returns every record for the user ordered by date then time.
func (d *DB) ListHistory(email string) ([]HistoryRecord, error) {
	return d.queryHistory(`
		SELECT `+historyColumns+` FROM event_history
		WHERE user_email = ?
		ORDER BY event_date ASC, event_time ASC, id ASC
	`, email)
}

// ListUpcomingHistory returns the user's records dated within [from, to]
// inclusive, ordered by date then time. Recurring records contribute one
// entry per occurrence inside the window.
func (d *DB) ListUpcomingHistory(email string, from, to time.Time) ([]HistoryRecord, error) {
	fromDate := from.Format(timeutil.DateLayout)
	toDate := to.Format(timeutil.DateLayout)

	records, err := d.queryHistory(`
		SELECT `+historyColumns+` FROM event_history
		WHERE user_email = ? AND recurring = ''
		AND event_date >= ? AND event_date <= ?
	`, email, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	recurring, err := d.queryHistory(`
		SELECT `+historyColumns+` FROM event_history
		WHERE user_email = ? AND recurring != '' AND event_date <= ?
	`, email, toDate)
	if err != nil {
		return nil, err
	}
	for _, rec := range recurring {
		records = append(records, expandOccurrences(rec, from, to)...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		if records[i].Time != records[j].Time {
			return records[i].Time < records[j].Time
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// expandOccurrences lays a recurring record's rule over [from, to]. Records
// whose rule or date cannot be parsed are skipped.
func expandOccurrences(rec HistoryRecord, from, to time.Time) []HistoryRecord {
	loc := from.Location()
	start, err := timeutil.ParseDate(rec.Date, loc)
	if err != nil {
		return nil
	}
	rule, err := rrule.StrToRRule("FREQ=" + strings.ToUpper(rec.Recurring))
	if err != nil {
		return nil
	}
	rule.DTStart(start)

	windowStart := timeutil.StartOfDay(from)
	windowEnd := timeutil.StartOfDay(to)

	var out []HistoryRecord
	for _, occ := range rule.Between(windowStart, windowEnd, true) {
		copied := rec
		copied.Date = occ.Format(timeutil.DateLayout)
		out = append(out, copied)
	}
	return out
}

func (d *DB) queryHistory(query string, args ...any) ([]HistoryRecord, error) {
	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(
			&r.ID, &r.UserEmail, &r.Title, &r.RawInput, &r.Date,
			&r.Time, &r.EndTime, &r.Location, &r.Recurring,
			&r.CalendarEventID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
