package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/extract"
)

// MockCompleter is a mock implementation of llm.Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockExtractor is a mock implementation of the event extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, userText string, ref time.Time) extract.Result {
	args := m.Called(ctx, userText, ref)
	return args.Get(0).(extract.Result)
}

// MockAnswerer is a mock implementation of the query assistant
type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, question string, rows []ask.Row, now time.Time) (string, error) {
	args := m.Called(ctx, question, rows, now)
	return args.String(0), args.Error(1)
}
