package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearth-im/hearth/pkg/jwtx"
)

func TestLoadOrGenerateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	first, err := jwtx.LoadOrGenerate(dir)
	require.NoError(t, err)
	require.Equal(t, jwtx.PrimaryKeyID, first.KID())

	require.FileExists(t, filepath.Join(dir, "signing_key.der"))
	require.FileExists(t, filepath.Join(dir, "signing_key.pub.der"))

	second, err := jwtx.LoadOrGenerate(dir)
	require.NoError(t, err)
	require.Equal(t, first.Public(), second.Public())
}

func TestLoadOrGenerateDetectsKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := jwtx.LoadOrGenerate(dir)
	require.NoError(t, err)

	// Overwrite the published key with one from a different pair.
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(otherPub)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signing_key.pub.der"), der, 0o644))

	_, err = jwtx.LoadOrGenerate(dir)
	require.ErrorIs(t, err, jwtx.ErrKeyMismatch)
}

func TestLoadOrGenerateRejectsGarbageKeyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signing_key.der"), []byte("not DER"), 0o600))

	_, err := jwtx.LoadOrGenerate(dir)
	require.Error(t, err)
}

func TestPublicJWKSShape(t *testing.T) {
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	set := id.PublicJWKS()
	require.Len(t, set.Keys, 1)

	jwk := set.Keys[0]
	require.Equal(t, "OKP", jwk.Kty)
	require.Equal(t, "Ed25519", jwk.Crv)
	require.Equal(t, "EdDSA", jwk.Alg)
	require.Equal(t, jwtx.PrimaryKeyID, jwk.Kid)

	pub, err := jwk.Ed25519PublicKey()
	require.NoError(t, err)
	require.Equal(t, id.Public(), pub)
}

func TestVerifyAccessToken(t *testing.T) {
	const serverURL = "https://hearth.example"
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)
	v := jwtx.NewVerifier(id, serverURL)

	now := time.Now()
	token, err := id.Sign(jwtx.NewClientClaims("usr_1", "cli_1", "openid chat", serverURL, now))
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "usr_1", claims.Subject)
	require.Equal(t, "cli_1", claims.ClientID)
	require.Equal(t, "openid chat", claims.Scope)
	require.WithinDuration(t, now.Add(jwtx.AccessTokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	const serverURL = "https://hearth.example"
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)
	v := jwtx.NewVerifier(id, serverURL)

	token, err := id.Sign(jwtx.NewClientClaims("usr_1", "cli_1", "openid", serverURL, time.Now()))
	require.NoError(t, err)

	// Flip one byte in the signature segment.
	broken := []byte(token)
	broken[len(broken)-2] ^= 0x01

	_, err = v.Verify(string(broken))
	require.Error(t, err)
}

func TestVerifyRejectsForeignSigner(t *testing.T) {
	const serverURL = "https://hearth.example"
	ours, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)
	theirs, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	token, err := theirs.Sign(jwtx.NewClientClaims("usr_1", "cli_1", "openid", serverURL, time.Now()))
	require.NoError(t, err)

	_, err = jwtx.NewVerifier(ours, serverURL).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	const serverURL = "https://hearth.example"
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	stale := time.Now().Add(-2 * jwtx.AccessTokenTTL)
	token, err := id.Sign(jwtx.NewClientClaims("usr_1", "cli_1", "openid", serverURL, stale))
	require.NoError(t, err)

	_, err = jwtx.NewVerifier(id, serverURL).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	token, err := id.Sign(jwtx.NewClientClaims("usr_1", "cli_1", "openid", "https://other.example", time.Now()))
	require.NoError(t, err)

	_, err = jwtx.NewVerifier(id, "https://hearth.example").Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}
