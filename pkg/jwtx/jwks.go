package jwtx

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
)

// JWK is an RFC 7517 JSON Web Key restricted to the fields Ed25519 needs
// (kty=OKP, crv=Ed25519, x=raw public key bytes, base64url).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewEd25519JWK projects an Ed25519 public key into JWK form.
func NewEd25519JWK(kid, use, alg string, pub ed25519.PublicKey) JWK {
	return JWK{
		Kty: "OKP",
		Use: use,
		Alg: alg,
		Kid: kid,
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(pub),
	}
}

// ErrNotEd25519 reports a JWK of a type this server does not use. Callers
// iterating a remote key set skip these rather than failing the whole set.
var ErrNotEd25519 = errors.New("jwtx: not an Ed25519 OKP key")

// Ed25519PublicKey extracts the verification key from an Ed25519 JWK.
func (k JWK) Ed25519PublicKey() (ed25519.PublicKey, error) {
	if k.Kty != "OKP" || k.Crv != "Ed25519" {
		return nil, ErrNotEd25519
	}
	raw, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode jwk x: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("jwtx: jwk x has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
