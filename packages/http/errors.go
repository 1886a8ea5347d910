package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies a transport failure.
type FailureKind int

const (
	ConnectionError FailureKind = iota
	TimeoutError
	TLSError
)

func (k FailureKind) String() string {
	switch k {
	case TimeoutError:
		return "timeout"
	case TLSError:
		return "tls"
	default:
		return "connection"
	}
}

// TransportError is returned by the Client when a request could not be
// completed. The Client never retries.
type TransportError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func classify(url string, err error) *TransportError {
	return &TransportError{Kind: failureKind(err), URL: url, Err: err}
}

func failureKind(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError
	}

	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &recordErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return TLSError
	}
	return ConnectionError
}
