package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier sends email notifications via Resend API
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
	appURL      string
}

// NewResendNotifier creates a new Resend email notifier
func NewResendNotifier(apiKey, from, appURL string) *ResendNotifier {
	if apiKey == "" {
		return nil
	}
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
		appURL:      appURL,
	}
}

// IsConfigured returns true if the notifier has server-side config
func (r *ResendNotifier) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != ""
}

// Send emails the recipient a summary of the events just added
func (r *ResendNotifier) Send(ctx context.Context, items []Item, recipient string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient specified")
	}
	if len(items) == 0 {
		return fmt.Errorf("no events to report")
	}

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{recipient},
		Subject: subject(items),
		Html:    r.formatEmailHTML(items, time.Now()),
	}

	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// Name returns the notifier name
func (r *ResendNotifier) Name() string {
	return "resend"
}

func subject(items []Item) string {
	if len(items) == 1 {
		return fmt.Sprintf("Added to your calendar: %s", items[0].Title)
	}
	return fmt.Sprintf("%d events added to your calendar", len(items))
}

// formatEmailHTML creates the HTML email body
func (r *ResendNotifier) formatEmailHTML(items []Item, sentAt time.Time) string {
	var rows strings.Builder
	for _, item := range items {
		locationHTML := ""
		if item.Location != "" {
			locationHTML = fmt.Sprintf(`<p style="margin: 4px 0; color: #555;"><strong>Location:</strong> %s</p>`, html.EscapeString(item.Location))
		}
		linkHTML := ""
		if item.Link != "" {
			linkHTML = fmt.Sprintf(`<p style="margin: 4px 0;"><a href="%s" style="color: #007bff;">Open in Google Calendar</a></p>`, html.EscapeString(item.Link))
		}

		fmt.Fprintf(&rows, `
    <div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 12px 0; border-left: 4px solid #28a745;">
      <h3 style="margin: 0 0 8px 0; color: #333;">%s</h3>
      <p style="margin: 4px 0;"><strong>When:</strong> %s</p>
      %s
      %s
    </div>`,
			html.EscapeString(item.Title),
			html.EscapeString(item.Start),
			locationHTML,
			linkHTML,
		)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
  <div style="background-color: white; border-radius: 8px; padding: 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <h2 style="margin: 0 0 16px 0; color: #333;">%s</h2>
    %s

    <a href="%s/" style="display: inline-block; background: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin-top: 16px; font-weight: 500;">
      Open Planner
    </a>

    <hr style="margin-top: 32px; border: none; border-top: 1px solid #eee;">
    <p style="color: #999; font-size: 12px; margin-top: 16px;">
      Project Planner - Scheduling Assistant<br>
      <span style="color: #ccc;">Sent at %s</span>
    </p>
  </div>
</body>
</html>`,
		html.EscapeString(subject(items)),
		rows.String(),
		r.appURL,
		sentAt.Format("Jan 2, 2006 3:04 PM"),
	)
}
