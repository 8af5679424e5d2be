package certificate

import (
	"crypto/x509"
	"fmt"
	"time"
)

// NearExpiryWindow is how close to NotAfter a certificate starts validating
// with a warning instead of failing.
const NearExpiryWindow = 30 * 24 * time.Hour

// Validity is the outcome of a validity-window check. NearExpiry is a soft
// warning: the certificate is still usable but the owner should renew it.
type Validity struct {
	Valid      bool
	NearExpiry bool
	Reason     string
}

// Validate checks now against [NotBefore, NotAfter]. Expiry within
// NearExpiryWindow is reported as valid with NearExpiry set, which is
// distinct from the hard rejection outside the window.
func Validate(cert *x509.Certificate, now time.Time) Validity {
	if now.Before(cert.NotBefore) {
		return Validity{
			Reason: fmt.Sprintf("certificate not valid before %s", cert.NotBefore.Format(time.RFC3339)),
		}
	}

	if now.After(cert.NotAfter) {
		return Validity{
			Reason: fmt.Sprintf("certificate expired at %s", cert.NotAfter.Format(time.RFC3339)),
		}
	}

	if cert.NotAfter.Sub(now) <= NearExpiryWindow {
		return Validity{
			Valid:      true,
			NearExpiry: true,
			Reason:     fmt.Sprintf("certificate expires at %s", cert.NotAfter.Format(time.RFC3339)),
		}
	}

	return Validity{Valid: true}
}
