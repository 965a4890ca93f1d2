package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"syscall"

	"github.com/luminahq/lumina/internal/errdef"
)

const (
	errTimeout    = "Request timeout"
	errConnection = "Connection error: "
	errRequest    = "Request error: "
	errUnexpected = "Unexpected error: "
)

// describeError maps a failure onto the four error classes a Response can
// carry: timeout, connection, request and unexpected.
func describeError(err error) string {
	switch {
	case isTimeout(err):
		return errTimeout
	case isConnectionError(err):
		return errConnection + detail(err)
	case isRequestError(err):
		return errRequest + detail(err)
	default:
		return errUnexpected + err.Error()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var (
		opErr   *net.OpError
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		authErr x509.UnknownAuthorityError
		hostErr x509.HostnameError
		invErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.As(err, &certErr), errors.As(err, &authErr),
		errors.As(err, &hostErr), errors.As(err, &invErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	}
	return false
}

func isRequestError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	switch errdef.CodeOf(err) {
	case errdef.CodeValidation, errdef.CodeHTTP, errdef.CodeConfig:
		return true
	}
	return false
}

// detail strips the "Get \"url\":" prefix of url.Error.
func detail(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
