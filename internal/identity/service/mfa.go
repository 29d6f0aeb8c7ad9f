package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quillgate/portal/internal/identity/domain"
	"github.com/quillgate/portal/internal/identity/store"
	"github.com/quillgate/portal/pkg/totpx"
	"golang.org/x/time/rate"
)

var (
	ErrTOTPNotEnrolled     = errors.New("TOTP not enrolled for this identity")
	ErrTOTPAlreadyEnabled  = errors.New("TOTP already enabled for this identity")
	ErrInvalidTOTPCode     = errors.New("invalid TOTP code")
	ErrTooManyVerifyTrials = errors.New("too many TOTP verification attempts")
)

// verifyAttemptLimit throttles code verification per identity: 5 attempts
// per minute with the full burst available, matching the strict profile the
// login endpoints use.
const (
	verifyAttemptsPerMinute = 5
	verifyBurst             = 5
)

// MFAService manages TOTP second-factor enrollment and verification.
// Enrollment is two-phase: EnrollTOTP stores an unconfirmed secret, and the
// credential only counts once ConfirmTOTP sees a valid code.
type MFAService struct {
	Store  store.Store
	Issuer string // issuer label in the provisioning URI (e.g. "Quillgate")

	// Rand is the entropy source for secret generation; nil means
	// crypto/rand. Explicit so tests can inject fixtures.
	Rand io.Reader

	// now is swappable for deterministic step tests.
	now func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (s *MFAService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *MFAService) entropy() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

// EnrollTOTP generates a secret for the identity and returns it with the
// provisioning URI. The second factor is not active yet: the identity must
// confirm with a valid code first. Re-enrolling before confirmation mints a
// fresh secret and invalidates the old one.
func (s *MFAService) EnrollTOTP(
	ctx context.Context,
	identityID string,
	account string,
) (domain.TOTPEnrollment, error) {
	if identityID == "" || account == "" {
		return domain.TOTPEnrollment{}, fmt.Errorf("identity id and account are required")
	}

	cred, err := s.Store.Credentials().GetCredential(ctx, identityID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to get credential: %w", err)
	}
	if err == nil && cred.Confirmed() {
		return domain.TOTPEnrollment{}, ErrTOTPAlreadyEnabled
	}

	secret, err := totpx.GenerateSecret(s.entropy())
	if err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	err = s.Store.Credentials().UpsertCredential(ctx, domain.TOTPCredential{
		IdentityID: identityID,
		Account:    account,
		Secret:     secret,
	})
	if err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to store credential: %w", err)
	}

	return domain.TOTPEnrollment{
		Secret:  secret,
		URI:     totpx.KeyURI(secret, account, s.Issuer),
		Issuer:  s.Issuer,
		Account: account,
	}, nil
}

// ConfirmTOTP completes enrollment by proving possession of the secret.
// The confirmation write is a compare-and-set, so only the first valid
// confirmation flips the credential on.
func (s *MFAService) ConfirmTOTP(ctx context.Context, identityID string, code string) error {
	cred, err := s.Store.Credentials().GetCredential(ctx, identityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTOTPNotEnrolled
		}
		return fmt.Errorf("failed to get credential: %w", err)
	}
	if cred.Confirmed() {
		return ErrTOTPAlreadyEnabled
	}

	ok, err := totpx.VerifyCode(cred.Secret, code, s.clock(), totpx.DefaultWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTOTPCode
	}

	err = s.Store.Credentials().ConfirmCredential(ctx, identityID, s.clock())
	if errors.Is(err, store.ErrConflict) {
		return ErrTOTPAlreadyEnabled
	}
	return err
}

// VerifyTOTP checks a login-challenge code against the identity's confirmed
// credential. A wrong code is the normal negative outcome, (false, nil),
// not an error. Attempts are throttled per identity to slow brute force on
// the million-code space.
func (s *MFAService) VerifyTOTP(ctx context.Context, identityID string, code string) (bool, error) {
	if !s.limiter(identityID).Allow() {
		return false, ErrTooManyVerifyTrials
	}

	cred, err := s.Store.Credentials().GetCredential(ctx, identityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrTOTPNotEnrolled
		}
		return false, fmt.Errorf("failed to get credential: %w", err)
	}
	if !cred.Confirmed() {
		return false, ErrTOTPNotEnrolled
	}

	return totpx.VerifyCode(cred.Secret, code, s.clock(), totpx.DefaultWindow)
}

// RemoveTOTP disables the second factor after a final proof of possession.
// Explicit re-enrollment afterwards creates a new secret; the old one is
// gone for good.
func (s *MFAService) RemoveTOTP(ctx context.Context, identityID string, code string) error {
	ok, err := s.VerifyTOTP(ctx, identityID, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTOTPCode
	}

	return s.Store.Credentials().DeleteCredential(ctx, identityID)
}

// limiter returns the per-identity attempt limiter, creating it on first use.
func (s *MFAService) limiter(identityID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiters == nil {
		s.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := s.limiters[identityID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(verifyAttemptsPerMinute)/60.0), verifyBurst)
		s.limiters[identityID] = l
	}
	return l
}
