package domain

import "time"

// InvitationStatus is the lifecycle state of an access grant. Pending is the
// only state with outgoing transitions; the other three are terminal.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a pending or resolved grant of an organizational role.
//
// Token is the opaque unguessable identifier mailed to the invitee. It is
// minted once at creation and never rotated, including on resend, so the
// stored value must be the verbatim token (re-delivery needs it).
type Invitation struct {
	ID             string
	Token          string
	Name           string
	Email          string
	Role           string
	OrganizationID string
	InvitedBy      string
	Status         InvitationStatus
	ExpiresAt      time.Time
	AcceptedAt     *time.Time // set on the pending→accepted transition
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Resolved reports whether the invitation has reached a terminal status.
func (i Invitation) Resolved() bool {
	return i.Status != InvitationPending
}

// Lapsed reports whether a still-pending invitation has outlived its
// deadline at the given instant. Expiry is lazy: the status only flips to
// Expired when a lifecycle operation observes the lapse.
func (i Invitation) Lapsed(now time.Time) bool {
	return i.Status == InvitationPending && now.After(i.ExpiresAt)
}

// Grant carries the parameters handed to downstream account provisioning
// when an invitation is accepted.
type Grant struct {
	Name           string
	Email          string
	Role           string
	OrganizationID string
	InvitedBy      string
	AcceptedAt     time.Time
}
