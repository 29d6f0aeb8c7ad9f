package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
	"github.com/quillgate/portal/internal/identity/notify"
	"github.com/quillgate/portal/internal/identity/store"
	"github.com/quillgate/portal/pkg/cryptox"
	"github.com/quillgate/portal/pkg/idx"
	"github.com/quillgate/portal/pkg/slogx"
)

// DefaultInvitationTTL is how long a freshly minted (or resent) invitation
// stays acceptable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

var (
	ErrInvalidInvitationRequest = errors.New("invalid invitation request")
	ErrInvitationNotFound       = errors.New("invitation not found")
	ErrInvitationExpired        = errors.New("invitation has expired")
	ErrInvitationResolved       = errors.New("invitation already resolved")
)

// InvitationService is the state machine governing access grants:
// pending → accepted | revoked | expired, with the three target states
// terminal. All status transitions go through the store's compare-and-set
// writes, so two concurrent calls on the same token can never both win.
type InvitationService struct {
	Store    store.Store
	Notifier notify.Notifier
	TTL      time.Duration // zero means DefaultInvitationTTL

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

func (s *InvitationService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *InvitationService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultInvitationTTL
}

// Create mints a new pending invitation and requests delivery.
//
// The token is a fresh 256-bit url-safe random string, minted exactly once;
// it survives resends unchanged and is never reused by another invitation.
func (s *InvitationService) Create(
	ctx context.Context,
	name string,
	email string,
	role string,
	organizationID string,
	invitedBy string,
) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input. Every grant parameter is required.
	if name == "" || email == "" || role == "" || organizationID == "" || invitedBy == "" {
		log.Warn("invitation create missing required fields")
		return domain.Invitation{}, ErrInvalidInvitationRequest
	}

	// 2. Generate the opaque token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, err
	}

	now := s.clock()
	inv := domain.Invitation{
		ID:             idx.New().String(),
		Token:          token,
		Name:           name,
		Email:          email,
		Role:           role,
		OrganizationID: organizationID,
		InvitedBy:      invitedBy,
		Status:         domain.InvitationPending,
		ExpiresAt:      now.Add(s.ttl()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// 3. Persist in a transaction.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Invitations().CreateInvitation(ctx, inv)
	})
	if err != nil {
		log.Error("failed to create invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, err
	}

	log.Debug("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("organization_id", organizationID),
		slog.String("role", role),
		slog.Time("expires_at", inv.ExpiresAt),
	)

	// 4. Request delivery. Best-effort: a dispatch failure is logged and
	// the committed transition stands; the dispatcher retries on its own.
	if s.Notifier != nil {
		s.dispatch(ctx, "invitation delivery", inv, s.Notifier.InvitationCreated)
	}

	return inv, nil
}

// Accept resolves an invitation to accepted and returns the grant
// parameters for downstream account provisioning. At most one concurrent
// caller observes the pending→accepted transition; the rest see
// ErrInvitationResolved.
func (s *InvitationService) Accept(ctx context.Context, token string) (domain.Grant, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.lookup(ctx, token)
	if err != nil {
		return domain.Grant{}, err
	}

	now := s.clock()

	// Lazy expiry: a lapsed pending invitation flips to expired the moment
	// any operation observes it.
	if inv.Lapsed(now) {
		s.expire(ctx, inv)
		log.Warn("acceptance attempted on expired invitation",
			slog.String("invitation_id", inv.ID),
		)
		return domain.Grant{}, ErrInvitationExpired
	}
	if inv.Resolved() {
		log.Warn("acceptance attempted on resolved invitation",
			slog.String("invitation_id", inv.ID),
			slog.String("status", string(inv.Status)),
		)
		return domain.Grant{}, ErrInvitationResolved
	}

	// Atomic check-then-set. Losing the race means somebody else resolved
	// the invitation between our read and this write.
	err = s.Store.Invitations().MarkInvitationAccepted(ctx, inv.ID, now)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Grant{}, ErrInvitationResolved
		}
		log.Error("failed to accept invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Grant{}, err
	}

	log.Info("invitation accepted",
		slog.String("invitation_id", inv.ID),
		slog.String("organization_id", inv.OrganizationID),
		slog.String("role", inv.Role),
	)

	return domain.Grant{
		Name:           inv.Name,
		Email:          inv.Email,
		Role:           inv.Role,
		OrganizationID: inv.OrganizationID,
		InvitedBy:      inv.InvitedBy,
		AcceptedAt:     now,
	}, nil
}

// Revoke withdraws a pending invitation. Revocation after acceptance is
// rejected, not silently ignored; access already granted must be removed
// through account-level tooling.
func (s *InvitationService) Revoke(ctx context.Context, token string) error {
	log := slogx.FromContext(ctx)

	inv, err := s.resolvePending(ctx, token)
	if err != nil {
		return err
	}

	err = s.Store.Invitations().MarkInvitationRevoked(ctx, inv.ID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrInvitationResolved
		}
		log.Error("failed to revoke invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("invitation revoked", slog.String("invitation_id", inv.ID))
	return nil
}

// Resend pushes the deadline of a pending invitation forward and requests
// re-delivery. The token is preserved, not rotated, so invitation links
// already sitting in the invitee's inbox stay valid.
func (s *InvitationService) Resend(ctx context.Context, token string) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.resolvePending(ctx, token)
	if err != nil {
		return domain.Invitation{}, err
	}

	expiresAt := s.clock().Add(s.ttl())
	err = s.Store.Invitations().ExtendInvitationExpiry(ctx, inv.ID, expiresAt)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Invitation{}, ErrInvitationResolved
		}
		log.Error("failed to extend invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, err
	}
	inv.ExpiresAt = expiresAt

	log.Debug("invitation resent",
		slog.String("invitation_id", inv.ID),
		slog.Time("expires_at", expiresAt),
	)

	if s.Notifier != nil {
		s.dispatch(ctx, "invitation re-delivery", inv, s.Notifier.InvitationResent)
	}

	return inv, nil
}

// Delete permanently removes an invitation regardless of status. This is an
// administrative operation, not a lifecycle transition, and it is
// idempotent: deleting an absent token succeeds.
func (s *InvitationService) Delete(ctx context.Context, token string) error {
	log := slogx.FromContext(ctx)

	if token == "" {
		return nil
	}
	if err := s.Store.Invitations().DeleteInvitationByToken(ctx, token); err != nil {
		log.Error("failed to delete invitation", slog.Any("error", err))
		return err
	}
	return nil
}

// lookup fetches by token, mapping absence to the service sentinel. An
// empty token can never match a minted one, so it is not-found too.
func (s *InvitationService) lookup(ctx context.Context, token string) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvitationNotFound
	}
	inv, err := s.Store.Invitations().GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		slogx.FromContext(ctx).Error("failed to fetch invitation", slog.Any("error", err))
		return domain.Invitation{}, err
	}
	return inv, nil
}

// resolvePending is the shared gate for revoke and resend: the invitation
// must exist and still be pending, with lazy expiry applied first.
func (s *InvitationService) resolvePending(ctx context.Context, token string) (domain.Invitation, error) {
	inv, err := s.lookup(ctx, token)
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.Lapsed(s.clock()) {
		s.expire(ctx, inv)
		return domain.Invitation{}, ErrInvitationResolved
	}
	if inv.Resolved() {
		return domain.Invitation{}, ErrInvitationResolved
	}
	return inv, nil
}

// expire flips a lapsed invitation to expired. A CAS conflict means a
// concurrent operation already resolved it, which is fine.
func (s *InvitationService) expire(ctx context.Context, inv domain.Invitation) {
	err := s.Store.Invitations().MarkInvitationExpired(ctx, inv.ID)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		slogx.FromContext(ctx).Error("failed to expire invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
	}
}

// dispatch invokes the notifier best-effort.
func (s *InvitationService) dispatch(
	ctx context.Context,
	what string,
	inv domain.Invitation,
	fn func(context.Context, domain.Invitation) error,
) {
	if err := fn(ctx, inv); err != nil {
		slogx.FromContext(ctx).Warn("delivery request failed",
			slog.String("what", what),
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
	}
}
