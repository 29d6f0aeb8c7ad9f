package domain

import "time"

// TOTPCredential is the second-factor enrollment state for one identity.
// The secret is stored verbatim; code verification needs the raw key.
// A credential only counts as a second factor once ConfirmedAt is set,
// which happens after the identity proves possession with a valid code.
type TOTPCredential struct {
	IdentityID  string
	Account     string // label shown in the authenticator app
	Secret      string // base32, unpadded
	ConfirmedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Confirmed reports whether enrollment has been completed.
func (c TOTPCredential) Confirmed() bool {
	return c.ConfirmedAt != nil
}

// TOTPEnrollment is returned when enrollment starts: everything the caller
// needs to render a QR code and show the manual-entry secret.
type TOTPEnrollment struct {
	Secret  string // base32 encoded secret
	URI     string // otpauth:// URL for QR code generation
	Issuer  string
	Account string
}
