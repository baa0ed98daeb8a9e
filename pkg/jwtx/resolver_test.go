package jwtx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/hearth-im/hearth/pkg/jwtx"
)

// fakePeer stands in for a remote home server: a signing identity plus an
// httptest server publishing its JWKS.
type fakePeer struct {
	id      *jwtx.SigningIdentity
	srv     *httptest.Server
	fetches atomic.Int64
}

func newFakePeer(t *testing.T, mutate func(*jwtx.JWKS)) *fakePeer {
	t.Helper()

	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	p := &fakePeer{id: id}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		p.fetches.Add(1)
		set := id.PublicJWKS()
		if mutate != nil {
			mutate(&set)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(set))
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePeer) token(t *testing.T, audience string, user *jwtx.DelegatedUser) string {
	t.Helper()
	tok, err := p.id.Sign(jwtx.NewFederationClaims(p.srv.URL, audience, user, time.Now()))
	require.NoError(t, err)
	return tok
}

func TestResolverVerifiesPeerToken(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	user := &jwtx.DelegatedUser{Name: "ana", Domain: "peer.example"}
	claims, err := r.Verify(t.Context(), peer.token(t, audience, user))
	require.NoError(t, err)
	require.Equal(t, peer.srv.URL, claims.Issuer)
	require.Equal(t, user, claims.User)
}

func TestResolverCachesKeySetUntilTTL(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience, TTL: 150 * time.Millisecond})

	for range 5 {
		_, err := r.Verify(t.Context(), peer.token(t, audience, nil))
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, peer.fetches.Load())

	time.Sleep(200 * time.Millisecond)
	_, err := r.Verify(t.Context(), peer.token(t, audience, nil))
	require.NoError(t, err)
	require.EqualValues(t, 2, peer.fetches.Load())
}

func TestResolverRejectsUnknownKid(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, func(set *jwtx.JWKS) {
		set.Keys[0].Kid = "not-primary"
	})
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	_, err := r.Verify(t.Context(), peer.token(t, audience, nil))
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
}

func TestResolverNoKidRequiresSingleKey(t *testing.T) {
	const audience = "https://hearth.example"

	// Token without a kid header against a two-key set: ambiguous.
	peer := newFakePeer(t, func(set *jwtx.JWKS) {
		extra := set.Keys[0]
		extra.Kid = "secondary"
		set.Keys = append(set.Keys, extra)
	})
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA,
		jwtx.NewFederationClaims(peer.srv.URL, audience, nil, time.Now()))
	signed, err := tok.SignedString(signingKeyOf(t, peer))
	require.NoError(t, err)

	_, err = r.Verify(t.Context(), signed)
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
	require.Contains(t, err.Error(), "ambiguous")
}

func TestResolverNoKidSingleKeyVerifies(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA,
		jwtx.NewFederationClaims(peer.srv.URL, audience, nil, time.Now()))
	signed, err := tok.SignedString(signingKeyOf(t, peer))
	require.NoError(t, err)

	claims, err := r.Verify(t.Context(), signed)
	require.NoError(t, err)
	require.Equal(t, peer.srv.URL, claims.Issuer)
}

func TestResolverSkipsNonEd25519Keys(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, func(set *jwtx.JWKS) {
		set.Keys = append([]jwtx.JWK{{Kty: "RSA", Kid: "rsa-1", Alg: "RS256"}}, set.Keys...)
	})
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	_, err := r.Verify(t.Context(), peer.token(t, audience, nil))
	require.NoError(t, err)
}

func TestResolverRejectsWrongAudience(t *testing.T) {
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: "https://hearth.example"})

	_, err := r.Verify(t.Context(), peer.token(t, "https://elsewhere.example", nil))
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
}

func TestResolverRejectsExpiredToken(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok, err := peer.id.Sign(jwtx.NewFederationClaims(
		peer.srv.URL, audience, nil, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = r.Verify(t.Context(), tok)
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
}

func TestResolverRejectsTamperedToken(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok := []byte(peer.token(t, audience, nil))
	tok[len(tok)-2] ^= 0x01

	_, err := r.Verify(t.Context(), string(tok))
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
}

func TestResolverRejectsUnresolvableIssuer(t *testing.T) {
	const audience = "https://hearth.example"
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok, err := id.Sign(jwtx.NewFederationClaims("not a url", audience, nil, time.Now()))
	require.NoError(t, err)

	_, err = r.Verify(t.Context(), tok)
	require.ErrorIs(t, err, jwtx.ErrFederationDenied)
}

func TestResolverNormalizesTrailingSlashIssuer(t *testing.T) {
	const audience = "https://hearth.example"
	peer := newFakePeer(t, nil)
	r := jwtx.NewResolver(jwtx.ResolverOptions{Audience: audience})

	tok, err := peer.id.Sign(jwtx.NewFederationClaims(peer.srv.URL+"/", audience, nil, time.Now()))
	require.NoError(t, err)

	claims, err := r.Verify(t.Context(), tok)
	require.NoError(t, err)
	require.Equal(t, peer.srv.URL+"/", claims.Issuer)
}

// signingKeyOf returns the peer's raw private key for tests that need a
// token without the kid header that SigningIdentity.Sign always sets.
func signingKeyOf(t *testing.T, p *fakePeer) any {
	t.Helper()
	return jwtx.PrivateKeyForTest(p.id)
}
