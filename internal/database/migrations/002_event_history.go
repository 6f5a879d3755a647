package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "event_history",
		Up:      eventHistory,
	})
}

func eventHistory(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS event_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_email TEXT NOT NULL,
			event_title TEXT NOT NULL,
			raw_input TEXT,
			event_date TEXT,
			event_time TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_event_history_user_date ON event_history(user_email, event_date, event_time)`)
	return err
}
