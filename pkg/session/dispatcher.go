package session

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/GateAI-net/gate-ios/pkg/authapi"
)

// Dispatcher issues proxied requests through the gateway with the session's
// authentication headers attached, handling a single DPoP-Nonce retry. Hosts
// that own their transport can skip it and call Session.Headers directly.
type Dispatcher struct {
	session    *Session
	httpClient *http.Client
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient sets the underlying HTTP client for proxied requests.
func WithHTTPClient(httpClient *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.httpClient = httpClient
	}
}

// NewDispatcher creates a dispatcher over the session.
func NewDispatcher(session *Session, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		session:    session,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do sends one authenticated request and returns the final response with its
// fully read body. If the first response is 401 with a DPoP-Nonce header,
// the request is re-signed with that nonce and resent exactly once; any
// other response is returned unchanged. The response body is already closed.
func (d *Dispatcher) Do(ctx context.Context, method, url string, body []byte, extra http.Header) (*http.Response, []byte, error) {
	resp, data, err := d.send(ctx, method, url, body, extra, "")
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if nonce := resp.Header.Get(authapi.HeaderDPoPNonce); nonce != "" {
			return d.send(ctx, method, url, body, extra, nonce)
		}
	}
	return resp, data, nil
}

func (d *Dispatcher) send(ctx context.Context, method, url string, body []byte, extra http.Header, nonce string) (*http.Response, []byte, error) {
	auth, err := d.session.Headers(ctx, method, url, nonce)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, err
	}
	for name, values := range extra {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	req.Header.Set("Authorization", "Bearer "+auth.Bearer)
	req.Header.Set("DPoP", auth.DPoP)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, nil, &authapi.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &authapi.TransportError{Err: err}
	}
	return resp, data, nil
}
