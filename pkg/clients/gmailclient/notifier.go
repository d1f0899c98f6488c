package gmailclient

import (
	"context"
	"fmt"

	"github.com/malinmalliyawadu/volunteer-portal-sub005/pkg/core/model"
)

// EmailLookup resolves a volunteer id to their email address.
type EmailLookup func(ctx context.Context, volunteerID string) (string, error)

// Notifier delivers notification payloads as Gmail messages. It satisfies
// the services' Notifier contract.
type Notifier struct {
	client *Client
	lookup EmailLookup
}

// NewNotifier wraps a Gmail client with a volunteer email lookup.
func NewNotifier(client *Client, lookup EmailLookup) *Notifier {
	return &Notifier{client: client, lookup: lookup}
}

// Send resolves the recipient's email address and sends the notification
// as a plain-text email.
func (n *Notifier) Send(ctx context.Context, notification model.Notification) error {
	email, err := n.lookup(ctx, notification.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient email: %w", err)
	}

	body := notification.Message
	if notification.ActionURL != "" {
		body = fmt.Sprintf("%s\n\n%s", notification.Message, notification.ActionURL)
	}

	if err := n.client.SendEmail(email, notification.Title, body); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	return nil
}
