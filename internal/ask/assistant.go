package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omriShneor/project_planner/internal/llm"
)

// NoTasksReply answers any question asked over an empty window.
const NoTasksReply = "You have no upcoming tasks in that period."

type Assistant struct {
	completer llm.Completer
	logger    *slog.Logger
}

func New(completer llm.Completer, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{completer: completer, logger: logger}
}

// Answer returns the model's plain-text reply to question over rows.
// With no rows there is nothing to filter and the model is not consulted.
func (a *Assistant) Answer(ctx context.Context, question string, rows []Row, now time.Time) (string, error) {
	if len(rows) == 0 {
		return NoTasksReply, nil
	}

	out, err := a.completer.Complete(ctx, BuildPrompt(question, rows, now))
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}

	a.logger.Debug("answered question", "prompt_version", PromptVersion, "rows", len(rows))
	return strings.TrimSpace(out), nil
}
