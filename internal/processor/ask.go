package processor

import (
	"context"

	"github.com/omriShneor/project_planner/internal/ask"
	"github.com/omriShneor/project_planner/internal/database"
	"github.com/omriShneor/project_planner/internal/timeutil"
)

// Ask answers a question over the user's upcoming history. Store and model
// failures collapse into AskFailureReply; the detail goes to the log only.
func (p *Processor) Ask(ctx context.Context, userEmail, question string) string {
	now := p.now().In(p.config.Location)
	today := timeutil.StartOfDay(now)
	end := timeutil.ResolveSearchEnd(question, today)

	records, err := p.history.ListUpcomingHistory(userEmail, today, end)
	if err != nil {
		p.logger.Error("failed to read history", "user", userEmail, "error", err)
		return AskFailureReply
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.LLMTimeout)
	defer cancel()

	answer, err := p.answerer.Answer(ctx, question, toRows(records), now)
	if err != nil {
		p.logger.Error("failed to answer question", "user", userEmail, "error", err)
		return AskFailureReply
	}

	p.logger.Info("question answered", "user", userEmail, "rows", len(records),
		"until", end.Format(timeutil.DateLayout))
	return answer
}

func toRows(records []database.HistoryRecord) []ask.Row {
	rows := make([]ask.Row, len(records))
	for i, r := range records {
		rows[i] = ask.Row{Date: r.Date, Time: r.Time, Title: r.Title, RawInput: r.RawInput}
	}
	return rows
}
