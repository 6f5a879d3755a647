package ask

import (
	"fmt"
	"strings"
	"time"

	"github.com/omriShneor/project_planner/internal/timeutil"
)

const PromptVersion = "ask-v1"

const noTasksMarker = "No upcoming tasks found in database."

// Row is one history entry offered to the model as context.
type Row struct {
	Date     string
	Time     string
	Title    string
	RawInput string
}

// BuildPrompt lays out the question, the rows and the answering rules.
func BuildPrompt(question string, rows []Row, now time.Time) string {
	var tasks strings.Builder
	if len(rows) == 0 {
		tasks.WriteString(noTasksMarker)
	}
	for _, r := range rows {
		fmt.Fprintf(&tasks, "- [%s at %s] Title: %s (Context: '%s')\n", r.Date, r.Time, r.Title, r.RawInput)
	}

	return `
    Current Date: ` + now.Format(timeutil.DateLayout) + ` | Current Time: ` + now.Format(timeutil.ClockLayout) + `
    User Question: "` + question + `"
    User Tasks:
    ` + tasks.String() + `
    
    INSTRUCTIONS:
    1. Filter the tasks based on the User's Question (Time & Topic).
    2. Understand semantics: "Practice" = "Learn" = "Study" = "Homework".
    3. Answer the question based strictly on the tasks.
    4. If the user asks "What should I practice before weekend?", look for tasks strictly BEFORE or ON Friday.
    5. BE DIRECT AND SHORT.
    6. Explicitly mention "today" or "tomorrow" and the time (e.g., "by 9 PM").
    7. NO MARKDOWN. Do not use **bold** or ## headers. Pure text only.
    8. If the user asks "What to do before sleeping", look for tasks scheduled for TONIGHT (after current time).
    9. If nothing matches, say so.

    Example Output:
    "You need to finish the database questions by 9 PM today. Good luck!"
    `
}
