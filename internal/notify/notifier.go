package notify

import (
	"context"
)

// Item is one calendar entry listed in a notification.
type Item struct {
	Title    string
	Start    string
	Location string
	Link     string
}

// Notifier sends a notification about newly added events to a recipient
type Notifier interface {
	// Send delivers one message covering all items
	Send(ctx context.Context, items []Item, recipient string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
