package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401 response. The session has already been
	// cleared by the time a caller sees it.
	ErrUnauthorized = errors.New("session expired")
	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the habit service.
type APIError struct {
	StatusCode int
	// Message is the server-provided message, if the body carried one.
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	status := http.StatusText(e.StatusCode)
	if status == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d %s", e.StatusCode, status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsServerError reports a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Kind classifies failures that never produced an HTTP response.
type Kind int

const (
	// KindUnreachable covers refused connections, DNS failures and resets.
	KindUnreachable Kind = iota
	// KindTimeout covers client and dial timeouts.
	KindTimeout
	// KindRejected covers TLS handshakes the client refused to complete.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	default:
		return "unreachable"
	}
}

// TransportError wraps a failure below the HTTP layer.
type TransportError struct {
	Kind    Kind
	BaseURL string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func classifyTransport(err error) Kind {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return KindTimeout
	}

	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordErr    tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr),
		errors.As(err, &recordErr):
		return KindRejected
	}
	return KindUnreachable
}

// IsTransport reports whether err is a TransportError of the given kind.
func IsTransport(err error, kind Kind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}
