package ask_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/mocks"
)

var now = time.Date(2024, 5, 8, 18, 30, 0, 0, time.UTC)

func TestAnswer_NoRowsSkipsModel(t *testing.T) {
	completer := &mocks.MockCompleter{}

	reply, err := ask.New(completer, nil).Answer(context.Background(), "what's on this weekend?", nil, now)

	require.NoError(t, err)
	assert.Equal(t, ask.NoTasksReply, reply)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswer_TrimsModelOutput(t *testing.T) {
	rows := []ask.Row{{Date: "2024-05-08", Time: "21:00", Title: "DB homework", RawInput: "finish db questions by 9"}}

	completer := &mocks.MockCompleter{}
	completer.On("Complete", mock.Anything, ask.BuildPrompt("before sleeping?", rows, now)).
		Return("\n  You need to finish the database questions by 9 PM today.  \n", nil)

	reply, err := ask.New(completer, nil).Answer(context.Background(), "before sleeping?", rows, now)

	require.NoError(t, err)
	assert.Equal(t, "You need to finish the database questions by 9 PM today.", reply)
	completer.AssertExpectations(t)
}

func TestAnswer_ModelError(t *testing.T) {
	rows := []ask.Row{{Date: "2024-05-08", Time: "21:00", Title: "x"}}
	completer := &mocks.MockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	_, err := ask.New(completer, nil).Answer(context.Background(), "q", rows, now)
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		prompt := ask.BuildPrompt("what should I practice?", []ask.Row{
			{Date: "2024-05-09", Time: "07:00", Title: "Piano", RawInput: "piano practice tomorrow 7am"},
			{Date: "2024-05-10", Time: "00:00", Title: "Essay", RawInput: "essay due friday"},
		}, now)

		assert.Contains(t, prompt, "Current Date: 2024-05-08 | Current Time: 18:30")
		assert.Contains(t, prompt, `User Question: "what should I practice?"`)
		assert.Contains(t, prompt, "- [2024-05-09 at 07:00] Title: Piano (Context: 'piano practice tomorrow 7am')")
		assert.Contains(t, prompt, "- [2024-05-10 at 00:00] Title: Essay (Context: 'essay due friday')")
		assert.NotContains(t, prompt, "No upcoming tasks found in database.")
		assert.Less(t, strings.Index(prompt, "Piano"), strings.Index(prompt, "Essay"))
	})

	t.Run("no rows", func(t *testing.T) {
		prompt := ask.BuildPrompt("anything?", nil, now)
		assert.Contains(t, prompt, "No upcoming tasks found in database.")
		assert.Contains(t, prompt, "9. If nothing matches, say so.")
	})
}
