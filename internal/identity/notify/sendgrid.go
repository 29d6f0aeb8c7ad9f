package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quillgate/portal/internal/identity/domain"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid delivers invitation mail through the SendGrid v3 API.
type SendGrid struct {
	APIKey   string
	From     string // sender address, e.g. no-reply@quillgate.example
	FromName string // display name on the sender
	BaseURL  string // portal base URL the acceptance link is built from
}

func (s *SendGrid) InvitationCreated(ctx context.Context, inv domain.Invitation) error {
	subject := fmt.Sprintf("You've been invited to join %s", inv.OrganizationID)
	body := fmt.Sprintf(
		"Hi %s,\n\n%s invited you to join as %s.\n\nAccept your invitation before %s:\n%s\n",
		inv.Name, inv.InvitedBy, inv.Role,
		inv.ExpiresAt.Format("2 Jan 2006 15:04 MST"),
		s.acceptURL(inv.Token),
	)
	return s.send(ctx, inv.Email, subject, body)
}

func (s *SendGrid) InvitationResent(ctx context.Context, inv domain.Invitation) error {
	subject := fmt.Sprintf("Reminder: your invitation to %s", inv.OrganizationID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour invitation to join as %s is still waiting.\n\nIt now expires %s:\n%s\n",
		inv.Name, inv.Role,
		inv.ExpiresAt.Format("2 Jan 2006 15:04 MST"),
		s.acceptURL(inv.Token),
	)
	return s.send(ctx, inv.Email, subject, body)
}

func (s *SendGrid) acceptURL(token string) string {
	return s.BaseURL + "/invitations/accept?token=" + url.QueryEscape(token)
}

func (s *SendGrid) send(ctx context.Context, to, subject, body string) error {
	if s.APIKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.FromName, s.From),
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", body),
	)

	client := sendgrid.NewSendClient(s.APIKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	return nil
}
