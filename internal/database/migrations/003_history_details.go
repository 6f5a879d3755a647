package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 3,
		Name:    "history_details",
		Up:      historyDetails,
	})
}

// historyDetails keeps what the calendar payload carried beyond the original
// columns, so recurring rows can be expanded and exported later.
func historyDetails(db *sql.DB) error {
	columns := []struct{ name, def string }{
		{"end_time", "TEXT"},
		{"location", "TEXT"},
		{"recurring", "TEXT NOT NULL DEFAULT ''"},
		{"calendar_event_id", "TEXT"},
	}
	for _, c := range columns {
		if err := AddColumnIfNotExists(db, "event_history", c.name, c.def); err != nil {
			return err
		}
	}
	return nil
}
