package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GateAI-net/gate-ios/internal/version"
)

// DefaultTimeout bounds each auth API call when the caller supplies no
// HTTP client of their own.
const DefaultTimeout = 30 * time.Second

// Client issues the three auth API calls. All are JSON POSTs; Register and
// Token additionally carry a DPoP header.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates an auth API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the absolute URL for an API path. DPoP proofs must be
// built for exactly this URL.
func (c *Client) Endpoint(path string) string {
	return c.baseURL + path
}

// Challenge requests a fresh attestation nonce.
func (c *Client) Challenge(ctx context.Context) (*Challenge, error) {
	var out Challenge
	if err := c.postJSON(ctx, PathChallenge, "", ChallengeRequest{Purpose: "token"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register submits the one-time attestation object. proof is the DPoP proof
// built for this endpoint; it travels both as the DPoP header and in the
// request body.
func (c *Client) Register(ctx context.Context, proof string, req *RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.postJSON(ctx, PathRegister, proof, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Token exchanges an assertion (or a development token) for an access token.
func (c *Client) Token(ctx context.Context, proof string, req *TokenRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, PathToken, proof, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path, proof string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if proof != "" {
		req.Header.Set("DPoP", proof)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// parseAPIError decodes the {error, error_description?} envelope from a
// non-2xx response. A body that is not the envelope still yields an APIError
// carrying the status and headers.
func parseAPIError(resp *http.Response, body []byte) *APIError {
	var envelope struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	// Best effort; a non-JSON body leaves the code empty.
	_ = json.Unmarshal(body, &envelope)

	return &APIError{
		Status:      resp.StatusCode,
		Code:        envelope.Error,
		Description: envelope.ErrorDescription,
		Headers:     resp.Header,
	}
}
