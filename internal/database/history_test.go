package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertHistory(t *testing.T, db *DB, rec HistoryRecord) int64 {
	t.Helper()
	id, err := db.InsertHistory(&rec)
	require.NoError(t, err)
	return id
}

func TestInsertHistory(t *testing.T) {
	db := NewTestDB(t)

	t.Run("applies placeholders", func(t *testing.T) {
		rec := HistoryRecord{UserEmail: "a@example.com", Date: "2025-06-02", RawInput: "mom's birthday"}
		id, err := db.InsertHistory(&rec)
		require.NoError(t, err)
		assert.Positive(t, id)
		assert.Equal(t, id, rec.ID)

		all, err := db.ListHistory("a@example.com")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Untitled Event", all[0].Title)
		assert.Equal(t, "00:00", all[0].Time)
		assert.Equal(t, "mom's birthday", all[0].RawInput)
		assert.False(t, all[0].CreatedAt.IsZero())
	})

	t.Run("requires user", func(t *testing.T) {
		_, err := db.InsertHistory(&HistoryRecord{Title: "x", Date: "2025-06-02"})
		assert.Error(t, err)
	})
}

func TestListHistoryTitles(t *testing.T) {
	db := NewTestDB(t)

	insertHistory(t, db, HistoryRecord{UserEmail: "a@example.com", Title: "First", Date: "2025-06-01"})
	insertHistory(t, db, HistoryRecord{UserEmail: "a@example.com", Title: "Second", Date: "2025-05-01"})
	insertHistory(t, db, HistoryRecord{UserEmail: "b@example.com", Title: "Other", Date: "2025-06-01"})

	titles, err := db.ListHistoryTitles("a@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second", "First"}, titles)

	titles, err = db.ListHistoryTitles("a@example.com", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second"}, titles)

	titles, err = db.ListHistoryTitles("nobody@example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestListUpcomingHistory(t *testing.T) {
	db := NewTestDB(t)
	email := "a@example.com"

	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Past", Date: "2025-05-31", Time: "10:00"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Evening", Date: "2025-06-02", Time: "21:00"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Morning", Date: "2025-06-02", Time: "07:00"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Edge", Date: "2025-06-06", Time: "09:00"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Too late", Date: "2025-06-07", Time: "09:00"})
	insertHistory(t, db, HistoryRecord{UserEmail: "b@example.com", Title: "Not mine", Date: "2025-06-03"})

	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

	rows, err := db.ListUpcomingHistory(email, from, to)
	require.NoError(t, err)

	var titles []string
	for _, r := range rows {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Morning", "Evening", "Edge"}, titles)
}

func TestListUpcomingHistory_ExpandsRecurring(t *testing.T) {
	db := NewTestDB(t)
	email := "a@example.com"

	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Gym", Date: "2025-05-26", Time: "06:00", Recurring: "weekly"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Standup", Date: "2025-06-03", Time: "09:30", Recurring: "daily"})
	insertHistory(t, db, HistoryRecord{UserEmail: email, Title: "Future", Date: "2025-07-01", Recurring: "daily"})

	// Monday 2025-06-02 through Thursday 2025-06-05
	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)

	rows, err := db.ListUpcomingHistory(email, from, to)
	require.NoError(t, err)

	type occ struct{ date, title string }
	var got []occ
	for _, r := range rows {
		got = append(got, occ{r.Date, r.Title})
	}
	assert.Equal(t, []occ{
		{"2025-06-02", "Gym"},
		{"2025-06-03", "Standup"},
		{"2025-06-04", "Standup"},
		{"2025-06-05", "Standup"},
	}, got)
}
