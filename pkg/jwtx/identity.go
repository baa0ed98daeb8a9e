package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

// PrimaryKeyID is the key identifier published for the server's signing key.
// There is exactly one signing identity per server process and no rotation,
// so the kid is a constant.
const PrimaryKeyID = "primary"

// On-disk filenames for the persisted keypair.
const (
	privateKeyFile = "signing_key.der"     // PKCS#8 DER
	publicKeyFile  = "signing_key.pub.der" // SPKI DER
)

// ErrKeyMismatch reports that the stored public key does not belong to the
// stored private key. This is fatal at startup: tokens signed with the
// private key would never verify against the published key.
var ErrKeyMismatch = errors.New("jwtx: stored public key does not match private key")

// SigningIdentity is a server's Ed25519 signing keypair. It is immutable for
// the life of the process; all fields are fixed at load time.
type SigningIdentity struct {
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// LoadOrGenerate loads the signing keypair from dir, generating and
// persisting a fresh one if none exists yet.
//
// When loading, the stored public key is cryptographically checked against
// the private key by signing and verifying a probe message. Any failure
// (unreadable files, malformed DER, mismatched keys) is returned to the
// caller, which is expected to treat it as fatal rather than continue with
// an unusable identity.
func LoadOrGenerate(dir string) (*SigningIdentity, error) {
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	privDER, err := os.ReadFile(privPath)
	switch {
	case err == nil:
		return loadIdentity(privDER, pubPath)
	case errors.Is(err, os.ErrNotExist):
		return generateIdentity(dir, privPath, pubPath)
	default:
		return nil, fmt.Errorf("jwtx: read private key: %w", err)
	}
}

func loadIdentity(privDER []byte, pubPath string) (*SigningIdentity, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS#8 private key: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: stored private key is not Ed25519")
	}

	pubDER, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, fmt.Errorf("jwtx: read public key: %w", err)
	}
	parsedPub, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse SPKI public key: %w", err)
	}
	pub, ok := parsedPub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwtx: stored public key is not Ed25519")
	}

	// Prove the pair belongs together before trusting it: a stale or
	// corrupted public key file would otherwise publish a key that can
	// never verify our signatures.
	probe := []byte("jwtx signing identity self-check")
	if !ed25519.Verify(pub, probe, ed25519.Sign(priv, probe)) {
		return nil, ErrKeyMismatch
	}

	return &SigningIdentity{kid: PrimaryKeyID, priv: priv, pub: pub}, nil
}

func generateIdentity(dir, privPath, pubPath string) (*SigningIdentity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate keypair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal PKCS#8: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal SPKI: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("jwtx: create key directory: %w", err)
	}
	if err := os.WriteFile(privPath, privDER, 0o600); err != nil {
		return nil, fmt.Errorf("jwtx: write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubDER, 0o644); err != nil {
		return nil, fmt.Errorf("jwtx: write public key: %w", err)
	}

	return &SigningIdentity{kid: PrimaryKeyID, priv: priv, pub: pub}, nil
}

// KID returns the key identifier placed in signed token headers.
func (s *SigningIdentity) KID() string { return s.kid }

// Public returns the raw Ed25519 verification key.
func (s *SigningIdentity) Public() ed25519.PublicKey { return s.pub }

// Sign turns claims into a signed EdDSA JWT string with the kid header set.
func (s *SigningIdentity) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.priv)
}

// PublicJWK returns the JWK projection of the verification key for
// publication at /.well-known/jwks.json.
func (s *SigningIdentity) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, "sig", jwt.SigningMethodEdDSA.Alg(), s.pub)
}

// PublicJWKS wraps PublicJWK in a single-key set for HTTP serving.
func (s *SigningIdentity) PublicJWKS() JWKS {
	return JWKS{Keys: []JWK{s.PublicJWK()}}
}
