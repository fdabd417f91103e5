package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GateAI-net/gate-ios/pkg/attest"
	"github.com/GateAI-net/gate-ios/pkg/authapi"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
	"github.com/GateAI-net/gate-ios/pkg/dpop"
)

// freshnessMargin is how much remaining lifetime a cached token needs before
// it is reused. Anything closer to expiry triggers a refresh.
const freshnessMargin = 60 * time.Second

// AuthorizationContext is the header pair for one proxied request. It is
// produced per request and never cached: the DPoP proof binds to the exact
// method and URL.
type AuthorizationContext struct {
	Bearer string
	DPoP   string
}

// accessToken is the in-memory token cache entry. Reads and writes happen
// under the session mutex so no caller observes a torn pair.
type accessToken struct {
	value     string
	expiresAt time.Time
	mode      string
}

// mintCall is the single in-flight mint slot. Concurrent callers observing a
// cache miss attach to it rather than starting their own mint; the mint is
// cancelled only when its last waiter detaches or on Reset.
type mintCall struct {
	done    chan struct{}
	cancel  context.CancelFunc
	waiters int

	token *accessToken
	err   error
}

// Session is the authentication engine. Create one per identity with New;
// all methods are safe for concurrent use.
type Session struct {
	cfg      Config
	api      *authapi.Client
	keys     devicekey.Store
	provider attest.Provider
	env      Environment
	log      *slog.Logger

	// Overridable for tests.
	now func() time.Time

	mu      sync.Mutex
	key     *devicekey.Material
	builder *dpop.Builder
	token   *accessToken
	mint    *mintCall
}

// Option configures a Session.
type Option func(*Session)

// WithEnvironment substitutes the runtime environment probe.
func WithEnvironment(env Environment) Option {
	return func(s *Session) {
		s.env = env
	}
}

// WithAPIClient substitutes the auth API client (custom HTTP transport,
// test servers).
func WithAPIClient(api *authapi.Client) Option {
	return func(s *Session) {
		s.api = api
	}
}

// New creates a session over the given key store and attestation provider.
func New(cfg Config, keys devicekey.Store, provider attest.Provider, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		api:      authapi.NewClient(cfg.BaseURL),
		keys:     keys,
		provider: provider,
		env:      DetectEnvironment(),
		log:      cfg.logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Headers ensures a valid access token and builds a DPoP proof for exactly
// this method and URL, returning the header pair for the request. nonce is a
// server-issued DPoP-Nonce value, or "" when no challenge is outstanding.
//
// Token acquisition may coalesce with other callers; the proof is always
// freshly signed with a unique jti, even when the token is reused.
func (s *Session) Headers(ctx context.Context, method, url, nonce string) (*AuthorizationContext, error) {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	builder, err := s.proofBuilder()
	if err != nil {
		return nil, err
	}
	proof, err := builder.Proof(method, url, nonce)
	if err != nil {
		return nil, err
	}

	return &AuthorizationContext{Bearer: token.value, DPoP: proof}, nil
}

// CurrentToken ensures a valid access token and returns its bearer value.
func (s *Session) CurrentToken(ctx context.Context) (string, error) {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return "", err
	}
	return token.value, nil
}

// Mode returns the mode reported with the current cached token ("prod",
// "dev", ...), or ErrTokenMissing if no token is cached. It never triggers
// a mint.
func (s *Session) Mode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return "", ErrTokenMissing
	}
	return s.token.mode, nil
}

// Thumbprint returns the device public key thumbprint, loading or creating
// the key if needed.
func (s *Session) Thumbprint(ctx context.Context) (string, error) {
	material, _, err := s.ensureKey(ctx)
	if err != nil {
		return "", err
	}
	return material.Thumbprint, nil
}

// Reset cancels any in-flight mint and discards the cached token. Device
// and attestation keys are untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mint != nil {
		s.mint.cancel()
		s.mint = nil
	}
	s.token = nil
}

// ensureToken returns a fresh-enough cached token or joins/starts a mint.
func (s *Session) ensureToken(ctx context.Context) (*accessToken, error) {
	s.mu.Lock()
	if s.token != nil && s.token.expiresAt.Sub(s.now()) > freshnessMargin {
		token := *s.token
		s.mu.Unlock()
		return &token, nil
	}

	if s.mint == nil {
		// The mint outlives any individual caller; it stops early only when
		// every waiter has detached or the session is reset.
		mintCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call := &mintCall{done: make(chan struct{}), cancel: cancel}
		s.mint = call
		go s.runMint(mintCtx, call)
	}
	call := s.mint
	call.waiters++
	s.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		token := *call.token
		return &token, nil
	case <-ctx.Done():
		s.mu.Lock()
		call.waiters--
		if call.waiters == 0 {
			call.cancel()
		}
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// runMint performs one mint and publishes the outcome to every attached
// caller. The slot is cleared on success and failure alike so the next
// cache miss may try again.
func (s *Session) runMint(ctx context.Context, call *mintCall) {
	token, err := s.mintToken(ctx)

	s.mu.Lock()
	call.token, call.err = token, err
	if err == nil {
		s.token = token
	}
	if s.mint == call {
		s.mint = nil
	}
	s.mu.Unlock()

	call.cancel()
	close(call.done)

	if err != nil {
		s.log.Warn("token mint failed", "error", err)
	} else {
		s.log.Debug("access token minted", "mode", token.mode, "expires_at", token.expiresAt)
	}
}

// ensureKey loads or creates the device key material and its proof builder.
func (s *Session) ensureKey(ctx context.Context) (*devicekey.Material, *dpop.Builder, error) {
	s.mu.Lock()
	if s.key != nil {
		material, builder := s.key, s.builder
		s.mu.Unlock()
		return material, builder, nil
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// LoadOrCreate may block on the platform key store; keep it outside the
	// session lock. The store itself is idempotent, so a concurrent double
	// call settles on the same material.
	material, err := s.keys.LoadOrCreate()
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		s.key = material
		s.builder = dpop.NewBuilder(material)
		s.log.Debug("device key ready", "thumbprint", material.Thumbprint)
	}
	return s.key, s.builder, nil
}

// proofBuilder returns the builder, initializing key material if a cached
// token exists without one (which only happens for externally seeded state).
func (s *Session) proofBuilder() (*dpop.Builder, error) {
	s.mu.Lock()
	builder := s.builder
	s.mu.Unlock()
	if builder != nil {
		return builder, nil
	}
	_, builder, err := s.ensureKey(context.Background())
	return builder, err
}
