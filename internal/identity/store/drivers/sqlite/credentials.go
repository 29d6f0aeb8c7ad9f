package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) UpsertCredential(ctx context.Context, c domain.TOTPCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO totp_credentials (identity_id, account, secret)
		VALUES (?, ?, ?)
		ON CONFLICT (identity_id) DO UPDATE
		SET account = excluded.account,
		    secret = excluded.secret,
		    confirmed_at = NULL,
		    updated_at = CURRENT_TIMESTAMP`,
		c.IdentityID, c.Account, c.Secret,
	)
	return err
}

func (r *credentialsRepo) GetCredential(
	ctx context.Context,
	identityID string,
) (domain.TOTPCredential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT identity_id, account, secret, confirmed_at, created_at, updated_at
		FROM totp_credentials
		WHERE identity_id = ?`,
		identityID,
	)

	var (
		c           domain.TOTPCredential
		confirmedAt sql.NullTime
	)
	err := row.Scan(&c.IdentityID, &c.Account, &c.Secret, &confirmedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.TOTPCredential{}, mapNotFound(err)
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		c.ConfirmedAt = &t
	}
	return c, nil
}

func (r *credentialsRepo) ConfirmCredential(
	ctx context.Context,
	identityID string,
	confirmedAt time.Time,
) error {
	return casResult(r.db.ExecContext(ctx, `
		UPDATE totp_credentials
		SET confirmed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE identity_id = ? AND confirmed_at IS NULL`,
		confirmedAt.UTC(), identityID,
	))
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM totp_credentials WHERE identity_id = ?`, identityID)
	return err
}
