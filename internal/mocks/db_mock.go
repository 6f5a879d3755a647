package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/project_planner/internal/database"
)

// MockHistoryStore is a mock implementation of the event history store
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) InsertHistory(rec *database.HistoryRecord) (int64, error) {
	args := m.Called(rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistoryStore) ListUpcomingHistory(email string, from, to time.Time) ([]database.HistoryRecord, error) {
	args := m.Called(email, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.HistoryRecord), args.Error(1)
}
