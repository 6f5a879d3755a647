package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/omriShneor/project_planner/internal/auth"
	"github.com/omriShneor/project_planner/internal/database"
)

type fakeCleaner struct {
	calls int
	n     int64
	err   error
}

func (f *fakeCleaner) CleanupExpiredSessions() (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestAddSessionCleanup(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"descriptor", "@hourly", false},
		{"five fields", "*/15 * * * *", false},
		{"every", "@every 10m", false},
		{"garbage", "sometimes", true},
		{"six fields", "0 */15 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(nil)
			err := s.AddSessionCleanup(tt.schedule, &fakeCleaner{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0, s.Jobs())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, s.Jobs())
			}
		})
	}
}

func TestCleanupSessions(t *testing.T) {
	s := NewScheduler(nil)

	ok := &fakeCleaner{n: 3}
	s.CleanupSessions(ok)
	assert.Equal(t, 1, ok.calls)

	failing := &fakeCleaner{err: errors.New("locked")}
	s.CleanupSessions(failing)
	assert.Equal(t, 1, failing.calls)
}

func TestCleanupSessions_AuthService(t *testing.T) {
	db := database.NewTestDB(t)
	user := database.CreateTestUser(t, db)

	enc, err := auth.NewEncryptor("jobs-test-key")
	require.NoError(t, err)
	svc := auth.NewService(db.DB, &oauth2.Config{}, enc)

	_, err = db.Exec(`INSERT INTO user_sessions (user_id, token_hash, expires_at) VALUES (?, 'old', ?), (?, 'live', ?)`,
		user.ID, time.Now().Add(-time.Hour), user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	NewScheduler(nil).CleanupSessions(svc)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_sessions`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.AddSessionCleanup("@every 1h", &fakeCleaner{}))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
