package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
	"github.com/quillgate/portal/internal/identity/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func pendingInvitation(id, token string) domain.Invitation {
	return domain.Invitation{
		ID:             id,
		Token:          token,
		Name:           "Dana Whitfield",
		Email:          "dana@example.com",
		Role:           "manager",
		OrganizationID: "org-yarra",
		InvitedBy:      "admin@example.com",
		Status:         domain.InvitationPending,
		ExpiresAt:      time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC),
	}
}

func TestInvitationRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inv := pendingInvitation("01INV1", "tok-round-trip")
	require.NoError(t, st.Invitations().CreateInvitation(ctx, inv))

	got, err := st.Invitations().GetInvitationByToken(ctx, "tok-round-trip")
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)
	require.Equal(t, inv.Token, got.Token)
	require.Equal(t, inv.Email, got.Email)
	require.Equal(t, domain.InvitationPending, got.Status)
	require.Nil(t, got.AcceptedAt)
	require.True(t, got.ExpiresAt.Equal(inv.ExpiresAt))
	require.False(t, got.CreatedAt.IsZero())

	_, err = st.Invitations().GetInvitationByToken(ctx, "unknown")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvitationTokenUnique(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Invitations().CreateInvitation(ctx, pendingInvitation("01INV1", "dup")))
	require.Error(t, st.Invitations().CreateInvitation(ctx, pendingInvitation("01INV2", "dup")))
}

func TestMarkInvitationAcceptedIsCompareAndSet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inv := pendingInvitation("01INV1", "tok-cas")
	require.NoError(t, st.Invitations().CreateInvitation(ctx, inv))

	at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, st.Invitations().MarkInvitationAccepted(ctx, inv.ID, at))

	got, err := st.Invitations().GetInvitationByToken(ctx, inv.Token)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, got.Status)
	require.NotNil(t, got.AcceptedAt)
	require.True(t, got.AcceptedAt.Equal(at))

	// The row is no longer pending, so every further transition loses.
	require.ErrorIs(t, st.Invitations().MarkInvitationAccepted(ctx, inv.ID, at), store.ErrConflict)
	require.ErrorIs(t, st.Invitations().MarkInvitationRevoked(ctx, inv.ID), store.ErrConflict)
	require.ErrorIs(t, st.Invitations().MarkInvitationExpired(ctx, inv.ID), store.ErrConflict)
	require.ErrorIs(t,
		st.Invitations().ExtendInvitationExpiry(ctx, inv.ID, at.Add(time.Hour)),
		store.ErrConflict)
}

func TestExtendInvitationExpiry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inv := pendingInvitation("01INV1", "tok-extend")
	require.NoError(t, st.Invitations().CreateInvitation(ctx, inv))

	later := inv.ExpiresAt.Add(96 * time.Hour)
	require.NoError(t, st.Invitations().ExtendInvitationExpiry(ctx, inv.ID, later))

	got, err := st.Invitations().GetInvitationByToken(ctx, inv.Token)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(later))
	require.Equal(t, inv.Token, got.Token)
	require.Equal(t, domain.InvitationPending, got.Status)
}

func TestDeleteInvitationIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inv := pendingInvitation("01INV1", "tok-del")
	require.NoError(t, st.Invitations().CreateInvitation(ctx, inv))

	require.NoError(t, st.Invitations().DeleteInvitationByToken(ctx, inv.Token))
	require.NoError(t, st.Invitations().DeleteInvitationByToken(ctx, inv.Token))
	require.NoError(t, st.Invitations().DeleteInvitationByToken(ctx, "never-there"))

	_, err := st.Invitations().GetInvitationByToken(ctx, inv.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sentinel := store.ErrConflict
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invitations().CreateInvitation(ctx, pendingInvitation("01INV1", "tok-tx")); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = st.Invitations().GetInvitationByToken(ctx, "tok-tx")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentialLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cred := domain.TOTPCredential{
		IdentityID: "id-1",
		Account:    "dana@example.com",
		Secret:     "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
	}
	require.NoError(t, st.Credentials().UpsertCredential(ctx, cred))

	got, err := st.Credentials().GetCredential(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, cred.Secret, got.Secret)
	require.False(t, got.Confirmed())

	// Re-enrolling before confirmation replaces the secret.
	cred.Secret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	require.NoError(t, st.Credentials().UpsertCredential(ctx, cred))
	got, err = st.Credentials().GetCredential(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, cred.Secret, got.Secret)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.Credentials().ConfirmCredential(ctx, "id-1", at))

	got, err = st.Credentials().GetCredential(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, got.Confirmed())

	// Confirmation is first-winner-only.
	require.ErrorIs(t, st.Credentials().ConfirmCredential(ctx, "id-1", at), store.ErrConflict)

	require.NoError(t, st.Credentials().DeleteCredential(ctx, "id-1"))
	_, err = st.Credentials().GetCredential(ctx, "id-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent credential is fine.
	require.NoError(t, st.Credentials().DeleteCredential(ctx, "id-1"))
}
