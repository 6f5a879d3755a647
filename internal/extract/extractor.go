package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omriShneor/project_planner/internal/llm"
)

type Kind string

const (
	KindAction Kind = "action"
	KindChat   Kind = "chat"
)

// Result is either a list of events (Action) or a conversational reply (Chat).
type Result struct {
	Kind   Kind
	Events []Event
	Reply  string
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

var errNotEvents = errors.New("response is not a JSON object or array of objects")

type Extractor struct {
	completer llm.Completer
	logger    *slog.Logger
}

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func New(completer llm.Completer, opts ...Option) *Extractor {
	e := &Extractor{completer: completer, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for the events in userText. It never returns an
// error: anything that goes wrong becomes a Chat reply carrying the cause.
func (x *Extractor) Extract(ctx context.Context, userText string, ref time.Time) Result {
	prompt := BuildPrompt(userText, ref)

	content, err := x.completer.Complete(ctx, prompt)
	if err != nil {
		x.logger.Warn("extraction call failed", "prompt_version", PromptVersion, "error", err)
		return chat(err)
	}

	events, err := ParseEvents(content, userText, ref)
	if err != nil {
		x.logger.Warn("extraction response unusable", "prompt_version", PromptVersion, "error", err)
		return chat(err)
	}

	x.logger.Debug("extracted events", "prompt_version", PromptVersion, "events", len(events))
	return Result{Kind: KindAction, Events: events}
}

func chat(err error) Result {
	return Result{Kind: KindChat, Reply: fmt.Sprintf("Error processing task: %v", err)}
}

// StripFences trims the response and, when it contains a fenced block, keeps
// only the inside of the first one.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.Contains(content, "```") {
		if m := fenceRe.FindStringSubmatch(content); m != nil {
			content = strings.TrimSpace(m[1])
		}
	}
	return content
}

// ParseEvents decodes a model response into normalized events. A bare object
// counts as a one-element list.
func ParseEvents(content, userText string, ref time.Time) ([]Event, error) {
	var decoded any
	if err := json.Unmarshal([]byte(StripFences(content)), &decoded); err != nil {
		return nil, err
	}

	var objects []map[string]any
	switch v := decoded.(type) {
	case map[string]any:
		objects = []map[string]any{v}
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, errNotEvents
			}
			objects = append(objects, obj)
		}
	default:
		return nil, errNotEvents
	}

	events := make([]Event, 0, len(objects))
	for _, obj := range objects {
		ev := Event{
			Title:           stringField(obj, "title"),
			Date:            stringField(obj, "date"),
			StartTime:       stringField(obj, "start_time"),
			EndTime:         stringField(obj, "end_time"),
			DurationMinutes: intField(obj, "duration_minutes"),
			Location:        stringField(obj, "location"),
			Notes:           stringField(obj, "notes"),
			Recurring:       Recurrence(stringField(obj, "recurring")),
		}
		ev.Normalize(userText, ref)
		events = append(events, ev)
	}
	return events, nil
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(obj map[string]any, key string) *int {
	var n int
	switch v := obj[key].(type) {
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}
