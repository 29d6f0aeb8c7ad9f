package store

import (
	"context"
	"errors"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a failed compare-and-set: the row's status had
	// already moved on by the time the write ran. Callers translate this
	// into their already-resolved error.
	ErrConflict = errors.New("store: state conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, or a
// managed backend adapter) implement this. Sub-repositories keep concerns
// tidy and let the lifecycle depend on exactly the operations it needs.
type Store interface {
	Invitations() Invitations
	Credentials() Credentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Invitations persists access grants keyed by their opaque token.
//
// Every Mark*/Extend* method is a compare-and-set: the row must still be
// pending, otherwise the driver reports ErrConflict and writes nothing.
// That guarantee is what makes concurrent accept/revoke/resend race-free:
// at most one caller observes the pending-to-terminal transition.
type Invitations interface {
	// CreateInvitation writes a new pending invitation.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByToken returns the invitation regardless of status.
	// Lazy expiry is the caller's job; the store never interprets time.
	GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error)

	// MarkInvitationAccepted transitions pending→accepted and records the
	// acceptance time.
	MarkInvitationAccepted(ctx context.Context, id string, acceptedAt time.Time) error

	// MarkInvitationRevoked transitions pending→revoked.
	MarkInvitationRevoked(ctx context.Context, id string) error

	// MarkInvitationExpired transitions pending→expired (lazy expiry).
	MarkInvitationExpired(ctx context.Context, id string) error

	// ExtendInvitationExpiry moves expires_at forward on a still-pending
	// invitation (resend). The token itself is never touched.
	ExtendInvitationExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// DeleteInvitationByToken removes the record whatever its status.
	// Deleting an absent token is not an error.
	DeleteInvitationByToken(ctx context.Context, token string) error
}

// Credentials persists TOTP enrollment state per identity.
type Credentials interface {
	// UpsertCredential writes enrollment state, replacing any unconfirmed
	// credential for the same identity.
	UpsertCredential(ctx context.Context, c domain.TOTPCredential) error

	// GetCredential returns the credential for an identity.
	GetCredential(ctx context.Context, identityID string) (domain.TOTPCredential, error)

	// ConfirmCredential sets confirmed_at iff the credential is still
	// unconfirmed (compare-and-set; ErrConflict otherwise).
	ConfirmCredential(ctx context.Context, identityID string, confirmedAt time.Time) error

	// DeleteCredential removes the enrollment. Idempotent.
	DeleteCredential(ctx context.Context, identityID string) error
}
