package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims validation is done by hand via validateRegistered so every rejection
// maps onto the package's own sentinel errors.
var eddsaParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
	jwt.WithoutClaimsValidation(),
)

// Verifier checks access tokens this server issued itself: signed by the
// local identity, issuer and audience both the server's canonical URL.
type Verifier struct {
	identity *SigningIdentity
	issuer   string
	now      func() time.Time
}

func NewVerifier(identity *SigningIdentity, issuer string) *Verifier {
	return &Verifier{identity: identity, issuer: issuer, now: time.Now}
}

// Verify parses and validates a locally issued access token.
func (v *Verifier) Verify(tokenStr string) (*ClientClaims, error) {
	claims := &ClientClaims{}
	_, err := eddsaParser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); ok && kid != v.identity.KID() {
			return nil, fmt.Errorf("%w: unknown kid %q", ErrSignature, kid)
		}
		return v.identity.Public(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validateRegistered(claims.RegisteredClaims, v.issuer, v.issuer, v.now()); err != nil {
		return nil, err
	}
	return claims, nil
}
