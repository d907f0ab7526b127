package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies why a fetch failed
type Kind string

const (
	KindInvalidURL Kind = "invalid_url"
	KindTimeout    Kind = "timeout"
	KindDNS        Kind = "dns"
	KindConnection Kind = "connection"
	KindTLS        Kind = "tls"
	KindRedirects  Kind = "too_many_redirects"
	KindHTTPStatus Kind = "http_status"
	KindBody       Kind = "body"
	KindNetwork    Kind = "network"
)

// ErrTooManyRedirects is returned by the redirect policy once the limit is hit
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrBodyTooLarge is wrapped in a KindBody FetchError when a page exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// FetchError is returned for every failed fetch. It never accompanies partial HTML.
type FetchError struct {
	Kind       Kind   `json:"kind"`
	URL        string `json:"url"`
	StatusCode int    `json:"httpStatus,omitempty"`
	Err        error  `json:"-"`
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected HTTP status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Reason is a short human readable cause suitable for "could not analyze this URL: <reason>"
func (e *FetchError) Reason() string {
	switch e.Kind {
	case KindInvalidURL:
		return "the URL is not valid"
	case KindTimeout:
		return "the site did not respond in time"
	case KindDNS:
		return "the domain could not be resolved"
	case KindConnection:
		return "the connection was refused or reset"
	case KindTLS:
		return "the TLS handshake failed"
	case KindRedirects:
		return "the page redirects too many times"
	case KindHTTPStatus:
		return fmt.Sprintf("the server answered with HTTP %d", e.StatusCode)
	case KindBody:
		if errors.Is(e.Err, ErrBodyTooLarge) {
			return "the page is too large to analyze"
		}
		return "the response body could not be read"
	default:
		return "a network error occurred"
	}
}

// Classify maps a transport error onto a Kind
func Classify(err error) Kind {
	if errors.Is(err, ErrTooManyRedirects) {
		return KindRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		return KindTLS
	}
	if strings.Contains(err.Error(), "tls:") {
		return KindTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnection
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return KindConnection
	}

	return KindNetwork
}
