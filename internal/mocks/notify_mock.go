package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/project_planner/internal/notify"
)

// MockNotifyService is a mock implementation of the notification service
type MockNotifyService struct {
	mock.Mock
}

func (m *MockNotifyService) NotifyEventsAdded(ctx context.Context, recipient string, items []notify.Item) {
	m.Called(ctx, recipient, items)
}
