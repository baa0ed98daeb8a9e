package jwtx

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hearth-im/hearth/pkg/slogx"
)

// ErrFederationDenied is the single error category surfaced for any failure
// while authenticating a federation token: malformed token, undiscoverable
// issuer, unknown kid, bad signature, stale claims. The wrapped detail is for
// logs only; HTTP handlers must respond with a generic body.
var ErrFederationDenied = errors.New("jwtx: federation token rejected")

// DefaultJWKSTTL is how long a fetched remote key set is served from cache.
// Remote servers never rotate within a process lifetime today, but the TTL
// keeps a future rotation from requiring restarts of every peer.
const DefaultJWKSTTL = 10 * time.Minute

const (
	jwksPath        = "/.well-known/jwks.json"
	fetchTimeout    = 10 * time.Second
	maxJWKSBodySize = 1 << 20
)

// Resolver authenticates tokens from peer servers. The issuer claim of an
// incoming token is read without verification, the peer's published key set
// is fetched from its well-known endpoint, and the signature is then checked
// against the selected key. Fetched key sets are cached per issuer.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]cachedKeySet

	ttl      time.Duration
	client   *http.Client
	audience string
	now      func() time.Time
}

type cachedKeySet struct {
	fetchedAt time.Time
	keys      map[string]ed25519.PublicKey
}

// ResolverOptions configures a Resolver. Zero values get sane defaults.
type ResolverOptions struct {
	// Audience is this server's canonical URL; incoming federation tokens
	// must be addressed to it.
	Audience string
	// TTL overrides DefaultJWKSTTL, mainly for tests.
	TTL time.Duration
	// Client overrides the HTTP client used for key set fetches.
	Client *http.Client
}

func NewResolver(opts ResolverOptions) *Resolver {
	r := &Resolver{
		cache:    make(map[string]cachedKeySet),
		ttl:      opts.TTL,
		client:   opts.Client,
		audience: opts.Audience,
		now:      time.Now,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultJWKSTTL
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: fetchTimeout}
	}
	return r
}

// Verify authenticates a federation token and returns its claims. Every
// failure mode collapses into ErrFederationDenied; inspect the wrapped error
// in logs, not in responses.
func (r *Resolver) Verify(ctx context.Context, tokenStr string) (*FederationClaims, error) {
	kid, issuer, err := PeekIssuer(tokenStr)
	if err != nil {
		return nil, denied(err)
	}

	keys, err := r.keysFor(ctx, issuer)
	if err != nil {
		return nil, denied(err)
	}

	pub, err := selectKey(keys, kid)
	if err != nil {
		return nil, denied(fmt.Errorf("issuer %s: %w", issuer, err))
	}

	claims := &FederationClaims{}
	if _, err := eddsaParser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}); err != nil {
		return nil, denied(fmt.Errorf("%w: %w", ErrSignature, err))
	}

	// The issuer used for discovery came from the unverified payload; now
	// that the signature checks out, pin the verified claims to it.
	if err := validateRegistered(claims.RegisteredClaims, claims.Issuer, r.audience, r.now()); err != nil {
		return nil, denied(err)
	}
	if normalizeIssuer(claims.Issuer) != issuer {
		return nil, denied(ErrIssuer)
	}
	return claims, nil
}

func denied(cause error) error {
	return fmt.Errorf("%w: %w", ErrFederationDenied, cause)
}

// PeekIssuer extracts the kid header and normalized issuer claim without
// verifying the signature. The result may only be used to locate key
// material or pick a verifier, never to authorize anything.
func PeekIssuer(tokenStr string) (kid, issuer string, err error) {
	claims := &FederationClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.Issuer == "" {
		return "", "", fmt.Errorf("%w: missing issuer claim", ErrMalformed)
	}
	kid, _ = token.Header["kid"].(string)
	return kid, normalizeIssuer(claims.Issuer), nil
}

func normalizeIssuer(iss string) string {
	return strings.TrimRight(iss, "/")
}

func selectKey(keys map[string]ed25519.PublicKey, kid string) (ed25519.PublicKey, error) {
	if kid != "" {
		pub, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return pub, nil
	}
	// No kid: only unambiguous if the peer publishes a single key.
	if len(keys) != 1 {
		return nil, fmt.Errorf("ambiguous key selection: no kid and %d keys", len(keys))
	}
	for _, pub := range keys {
		return pub, nil
	}
	return nil, errors.New("empty key set")
}

// keysFor returns the cached key set for issuer, fetching it when absent or
// stale. The fetch runs outside the lock so a slow peer does not block
// verification against other issuers; concurrent callers may fetch the same
// set twice, which is harmless.
func (r *Resolver) keysFor(ctx context.Context, issuer string) (map[string]ed25519.PublicKey, error) {
	r.mu.RLock()
	entry, ok := r.cache[issuer]
	r.mu.RUnlock()
	if ok && r.now().Sub(entry.fetchedAt) < r.ttl {
		return entry.keys, nil
	}

	keys, err := r.fetchJWKS(ctx, issuer)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[issuer] = cachedKeySet{fetchedAt: r.now(), keys: keys}
	r.mu.Unlock()
	return keys, nil
}

func (r *Resolver) fetchJWKS(ctx context.Context, issuer string) (map[string]ed25519.PublicKey, error) {
	u, err := url.Parse(issuer)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("issuer %q is not a usable base URL", issuer)
	}

	// Detach from the request context: the fetched keys outlive this
	// request via the cache, so one client hanging up must not poison the
	// fetch for everyone behind it. The client timeout still bounds it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, issuer+jwksPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", issuer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks from %s: status %d", issuer, resp.StatusCode)
	}

	var doc JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBodySize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode jwks from %s: %w", issuer, err)
	}

	log := slogx.FromContext(ctx)
	keys := make(map[string]ed25519.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		pub, err := jwk.Ed25519PublicKey()
		if err != nil {
			// Peers may publish RSA or EC keys for other purposes.
			log.Debug("skipping unusable jwk", "issuer", issuer, "kid", jwk.Kid, "err", err)
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks from %s contains no usable keys", issuer)
	}
	return keys, nil
}
