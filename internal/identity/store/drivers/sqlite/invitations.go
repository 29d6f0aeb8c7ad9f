package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
)

type invitationsRepo struct {
	db dbtx
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, token, name, email, role, organization_id, invited_by, status, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Token, inv.Name, inv.Email, inv.Role,
		inv.OrganizationID, inv.InvitedBy, string(inv.Status), inv.ExpiresAt.UTC(),
	)
	return err
}

func (r *invitationsRepo) GetInvitationByToken(
	ctx context.Context,
	token string,
) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token, name, email, role, organization_id, invited_by,
		       status, expires_at, accepted_at, created_at, updated_at
		FROM invitations
		WHERE token = ?`,
		token,
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) MarkInvitationAccepted(
	ctx context.Context,
	id string,
	acceptedAt time.Time,
) error {
	return casResult(r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'accepted', accepted_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`,
		acceptedAt.UTC(), id,
	))
}

func (r *invitationsRepo) MarkInvitationRevoked(ctx context.Context, id string) error {
	return casResult(r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'revoked', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`,
		id,
	))
}

func (r *invitationsRepo) MarkInvitationExpired(ctx context.Context, id string) error {
	return casResult(r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`,
		id,
	))
}

func (r *invitationsRepo) ExtendInvitationExpiry(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) error {
	return casResult(r.db.ExecContext(ctx, `
		UPDATE invitations
		SET expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`,
		expiresAt.UTC(), id,
	))
}

func (r *invitationsRepo) DeleteInvitationByToken(ctx context.Context, token string) error {
	// Deliberately ignores the affected row count: deleting an absent
	// token is a success.
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE token = ?`, token)
	return err
}

func scanInvitation(row *sql.Row) (domain.Invitation, error) {
	var (
		inv        domain.Invitation
		status     string
		acceptedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.Token, &inv.Name, &inv.Email, &inv.Role,
		&inv.OrganizationID, &inv.InvitedBy, &status,
		&inv.ExpiresAt, &acceptedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}

	inv.Status = domain.InvitationStatus(status)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return inv, nil
}
