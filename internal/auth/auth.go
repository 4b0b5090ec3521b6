// Package auth issues and reads the HS256 tokens that identify a table owner.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
)

const OwnerClaim = "owner_id"

var ErrNoOwner = errors.New("token has no owner_id claim")

func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for ownerID valid for ttl.
func IssueToken(ja *jwtauth.JWTAuth, ownerID string, ttl time.Duration) (string, error) {
	_, tokenString, err := ja.Encode(map[string]interface{}{
		OwnerClaim: ownerID,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}

// OwnerID reads the owner claim of the token verified into ctx.
func OwnerID(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", err
	}
	owner, ok := claims[OwnerClaim].(string)
	if !ok || owner == "" {
		return "", ErrNoOwner
	}
	return owner, nil
}

// TokenFromQuery reads the "jwt" query parameter. Browsers cannot set
// headers on a websocket upgrade.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("jwt")
}

// Verifier accepts a token from the Authorization header, the jwt cookie
// or the jwt query parameter.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, TokenFromQuery)
}
