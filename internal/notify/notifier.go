// Package notify delivers "a message is waiting for you" emails.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no email provider credentials exist.
var ErrNotConfigured = errors.New("notifier not configured")

// Delivery is everything a recipient needs to learn about a message. Note
// is the author's private annotation; implementations must not show it to
// the recipient.
type Delivery struct {
	RecipientEmail string
	RecipientName  string
	SenderName     string
	MessageTitle   string
	MessageID      string
	MessageType    string
	Note           string
}

// Notifier sends one delivery notification. Implementations must respect
// ctx cancellation.
type Notifier interface {
	Send(ctx context.Context, d Delivery) error
}
