package humhub

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned without any network call when the
// configured JWT carries an exp claim in the past.
var ErrTokenExpired = errors.New("jwt has expired")

// checkJWT inspects the token without verifying its signature; only the
// server holds the key. Tokens that do not parse as JWTs are passed
// through untouched and left for the server to judge.
func checkJWT(raw string, now time.Time) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return ErrTokenExpired
	}
	return nil
}

// JWTSubject returns the sub claim of an unverified JWT, or "".
func JWTSubject(raw string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
