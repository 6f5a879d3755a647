package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, items []Item, recipient string) error {
	args := m.Called(ctx, items, recipient)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNotifier) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func TestIsEmailAvailable(t *testing.T) {
	t.Run("available when notifier configured", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)

		service := NewService(emailNotifier, nil)
		assert.True(t, service.IsEmailAvailable())

		emailNotifier.AssertExpectations(t)
	})

	t.Run("not available when notifier not configured", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(false)

		service := NewService(emailNotifier, nil)
		assert.False(t, service.IsEmailAvailable())

		emailNotifier.AssertExpectations(t)
	})

	t.Run("not available when notifier is nil", func(t *testing.T) {
		service := NewService(nil, nil)
		assert.False(t, service.IsEmailAvailable())
	})
}

func TestNotifyEventsAdded(t *testing.T) {
	items := []Item{{Title: "Dentist", Start: "2024-05-10 09:00"}}

	t.Run("sends in background", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)
		emailNotifier.On("Name").Return("mock")
		emailNotifier.On("Send", mock.Anything, items, "ann@example.com").Return(nil)

		service := NewService(emailNotifier, nil)
		service.NotifyEventsAdded(context.Background(), "ann@example.com", items)
		service.Wait()

		emailNotifier.AssertExpectations(t)
	})

	t.Run("outlives a cancelled request", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)
		emailNotifier.On("Name").Return("mock")
		emailNotifier.On("Send", mock.Anything, items, "ann@example.com").
			Run(func(args mock.Arguments) {
				ctx := args.Get(0).(context.Context)
				assert.NoError(t, ctx.Err())
			}).
			Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		service := NewService(emailNotifier, nil)
		service.NotifyEventsAdded(ctx, "ann@example.com", items)
		service.Wait()

		emailNotifier.AssertExpectations(t)
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(true)
		emailNotifier.On("Name").Return("mock")
		emailNotifier.On("Send", mock.Anything, items, "ann@example.com").Return(errors.New("boom"))

		service := NewService(emailNotifier, nil)
		service.NotifyEventsAdded(context.Background(), "ann@example.com", items)
		service.Wait()

		emailNotifier.AssertExpectations(t)
	})

	t.Run("skipped when not configured", func(t *testing.T) {
		emailNotifier := &MockNotifier{}
		emailNotifier.On("IsConfigured").Return(false)

		service := NewService(emailNotifier, nil)
		service.NotifyEventsAdded(context.Background(), "ann@example.com", items)
		service.Wait()

		emailNotifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("skipped without items", func(t *testing.T) {
		emailNotifier := &MockNotifier{}

		service := NewService(emailNotifier, nil)
		service.NotifyEventsAdded(context.Background(), "ann@example.com", nil)
		service.Wait()

		emailNotifier.AssertNotCalled(t, "IsConfigured")
	})
}

func TestResendNotifier(t *testing.T) {
	t.Run("nil without api key", func(t *testing.T) {
		assert.Nil(t, NewResendNotifier("", "planner@example.com", "http://localhost"))
	})

	t.Run("needs a sender", func(t *testing.T) {
		assert.False(t, NewResendNotifier("re_key", "", "http://localhost").IsConfigured())
		assert.True(t, NewResendNotifier("re_key", "planner@example.com", "http://localhost").IsConfigured())
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		n := NewResendNotifier("re_key", "planner@example.com", "http://localhost")
		err := n.Send(context.Background(), []Item{{Title: "x"}}, "")
		assert.Error(t, err)
	})
}

func newTestResend(t *testing.T, handler http.HandlerFunc) *ResendNotifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	n := NewResendNotifier("re_key", "planner@example.com", "https://planner.example.com")
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	n.client.BaseURL = base
	return n
}

func TestResendNotifier_Send(t *testing.T) {
	var received map[string]any
	n := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	})

	err := n.Send(context.Background(), []Item{{Title: "Gym", Start: "2024-05-11", Location: "Main St"}}, "ann@example.com")
	require.NoError(t, err)

	assert.Equal(t, "planner@example.com", received["from"])
	assert.Equal(t, []any{"ann@example.com"}, received["to"])
	assert.Equal(t, "Added to your calendar: Gym", received["subject"])
	assert.Contains(t, received["html"], "Main St")
}

func TestResendNotifier_SendHonorsContext(t *testing.T) {
	var hits atomic.Int32
	n := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, []Item{{Title: "Gym"}}, "ann@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestFormatEmailHTML(t *testing.T) {
	n := NewResendNotifier("re_key", "planner@example.com", "https://planner.example.com")
	items := []Item{
		{Title: "Lunch <with> Bob", Start: "2024-05-10 12:00", Location: "Cafe", Link: "https://calendar.google.com/e/1"},
		{Title: "Gym", Start: "2024-05-11"},
	}

	body := n.formatEmailHTML(items, time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC))

	assert.Contains(t, body, "Lunch &lt;with&gt; Bob")
	assert.NotContains(t, body, "<with>")
	assert.Contains(t, body, "Cafe")
	assert.Contains(t, body, "https://calendar.google.com/e/1")
	assert.Contains(t, body, "2 events added to your calendar")
	assert.Contains(t, body, "https://planner.example.com/")
	assert.Equal(t, 1, strings.Count(body, "Open in Google Calendar"))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Added to your calendar: Gym", subject([]Item{{Title: "Gym"}}))
	assert.Equal(t, "3 events added to your calendar", subject(make([]Item, 3)))
}
