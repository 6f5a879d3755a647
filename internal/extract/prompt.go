package extract

import (
	"time"

	"github.com/omriShneor/project_planner/internal/timeutil"
)

// PromptVersion identifies the instruction block below. Changing the wording
// changes what the model returns, so bump it together with the parser.
const PromptVersion = "extract-v1"

// BuildPrompt appends the extraction instructions to the user's message.
func BuildPrompt(userText string, ref time.Time) string {
	return userText + `
    You are an event extraction engine.
    REFERENCE DATE (for interpreting words like "tomorrow"): ` + ref.Format(timeutil.DateLayout) + `
    Reference Time: ` + ref.Format(timeutil.ClockLayout) + `
Your task:
Given a user's scheduling message, extract the event details in STRICT JSON format.
RULES:
- Output ONLY valid JSON. No markdown. No explanations.
- If information is missing, infer only when obvious (e.g., "tomorrow", "next monday").
- If the user does not specify a date, assume the event is today.
- CRITICAL: If the user provides a time without AM/PM (e.g., "at 8" or "before 9"), compare it to the Reference Time.
- If the implied AM time has ALREADY PASSED today, you MUST assume PM (e.g., convert "9" to "21:00").
- If the user does not specify a start time, assume now or a reasonable default.
- If the user specifies a start time but no end time:
    - If duration is provided (e.g., "for 2 hours"), calculate end_time.
    - If duration is not provided, predict typical duration based on the event title (e.g., yoga = 60 min, meeting = 60 min, call = 30 min).
- If the event repeats regularly, fill the "recurring" field:
    - "daily" for every day
    - "weekly" for once a week
    - "monthly" for once a month
- If the event is not recurring, leave "recurring" as an empty string.
- If only end_time is provided, back-calculate start_time from duration if obvious.
- Times must be in 24-hour format HH:MM.
- Date must be in YYYY-MM-DD.
- If the user says "tomorrow", convert it to YYYY-MM-DD using the reference date.
- If the user says "next week", assume the event is on the same weekday next week.
- Output a SINGLE JSON array of event objects.
- Title should be short and human-friendly.
JSON SCHEMA:
{
  "event_id": "",
  "title": "",
  "date": "",
  "start_time": "",
  "end_time": "",
  "duration_minutes": null,
  "location": "",
  "notes": "",
  "raw_input": "",
  "recurring": ""
}
`
}
