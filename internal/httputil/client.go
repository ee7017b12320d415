// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client and request helpers used by the
// fetch stage.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/paperdl/pkg/types"
)

// DefaultTimeout bounds connecting and waiting for response headers when the
// configuration leaves Timeout unset.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNetwork marks transport failures: DNS, connect, TLS, header timeout.
	ErrNetwork = errors.New("network error")

	// ErrHTTPStatus marks responses with a non-2xx status code.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// StatusError reports a non-2xx response. It matches ErrHTTPStatus with
// errors.Is.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Is reports whether target is ErrHTTPStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// NewClient returns a client whose transport bounds each connection phase by
// cfg.Timeout. The phases are bounded separately and the body not at all;
// callers that need one budget per exchange, or an idle limit on the body,
// enforce it through the request context. Redirects are followed.
func NewClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{Transport: transport}
}

// Get issues a GET request for url and returns the response when the status
// is 2xx. Transport failures wrap ErrNetwork; other statuses return a
// *StatusError after the body is drained and closed. If ctx is cancelled the
// returned error wraps ctx.Err().
func Get(ctx context.Context, client *http.Client, url, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrNetwork, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("GET %s: %w", url, ctxErr)
		}
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, err)
	}

	if err := CheckStatus(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// CheckStatus returns a *StatusError unless resp has a 2xx status code.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		u := ""
		if resp.Request != nil && resp.Request.URL != nil {
			u = resp.Request.URL.String()
		}
		return &StatusError{StatusCode: resp.StatusCode, URL: u}
	}
	return nil
}
