package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/project_planner/internal/extract"
	"github.com/omriShneor/project_planner/internal/gcal"
)

// MockCalendar is a mock implementation of a user's calendar
type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) CreateEvent(ctx context.Context, ev extract.Event) (*gcal.CreatedEvent, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gcal.CreatedEvent), args.Error(1)
}
