// Package notify defines the delivery collaborator the invitation lifecycle
// calls as a fire-and-forget side effect. Delivery failure never rolls back
// a lifecycle transition; the dispatcher is expected to retry on its own.
package notify

import (
	"context"

	"github.com/quillgate/portal/internal/identity/domain"
)

// Notifier requests delivery of invitation mail. Implementations must treat
// the invitation token as a credential: it goes into the message, never into
// logs.
type Notifier interface {
	// InvitationCreated requests delivery of a freshly minted invitation.
	InvitationCreated(ctx context.Context, inv domain.Invitation) error

	// InvitationResent requests re-delivery of a still-pending invitation
	// with its unchanged token and refreshed deadline.
	InvitationResent(ctx context.Context, inv domain.Invitation) error
}

// Nop discards all delivery requests. Useful for tests and for deployments
// where another system owns invitation mail.
type Nop struct{}

func (Nop) InvitationCreated(context.Context, domain.Invitation) error { return nil }
func (Nop) InvitationResent(context.Context, domain.Invitation) error  { return nil }
