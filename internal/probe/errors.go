package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/koustreak/dsneditor/internal/errs"
)

// mapError converts a net/http client error into an *errs.Error
func mapError(err error, endpoint string) error {
	if err == nil {
		return nil
	}

	var own *errs.Error
	if errors.As(err, &own) {
		return own
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "connection timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, "connection timed out", err)
	}

	if errors.Is(err, http.ErrSchemeMismatch) {
		return errs.Wrap(errs.ErrKindConnectionFailed, "server does not speak TLS; check the TLS policy", err)
	}

	var (
		verifyErr  *tls.CertificateVerificationError
		hostErr    x509.HostnameError
		authErr    x509.UnknownAuthorityError
		invalidErr x509.CertificateInvalidError
		recordErr  tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &hostErr):
		return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("certificate is not valid for %s", hostErr.Host), err)
	case errors.As(err, &authErr), errors.As(err, &invalidErr), errors.As(err, &verifyErr):
		return errs.Wrap(errs.ErrKindConnectionFailed, "server certificate could not be verified", err)
	case errors.As(err, &recordErr):
		return errs.Wrap(errs.ErrKindConnectionFailed, "server does not speak TLS; check the TLS policy", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("cannot resolve %s", dnsErr.Name), err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("cannot reach %s", endpoint), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, err.Error(), err)
}
