package totpx

import (
	"fmt"
	"net/url"
	"strconv"
)

// KeyURI formats the provisioning URI encoded into enrollment QR codes:
//
//	otpauth://totp/{issuer}:{account}?secret=...&issuer=...
//
// Pure formatting, no I/O. The label and issuer are percent-encoded; the
// algorithm/digits/period parameters are spelled out even though they match
// authenticator defaults.
func KeyURI(secret, account, issuer string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", strconv.Itoa(Digits))
	v.Set("period", strconv.Itoa(int(Period.Seconds())))

	label := url.PathEscape(issuer + ":" + account)
	return fmt.Sprintf("otpauth://totp/%s?%s", label, v.Encode())
}
