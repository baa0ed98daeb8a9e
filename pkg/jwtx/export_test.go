package jwtx

import "crypto/ed25519"

// PrivateKeyForTest exposes the signing key so tests can produce tokens
// without the kid header that Sign always sets.
func PrivateKeyForTest(s *SigningIdentity) ed25519.PrivateKey { return s.priv }
