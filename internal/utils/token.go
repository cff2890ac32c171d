package utils // package utils provides helpers for session token creation

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed JWT bound to one checkout session.
// The Token field contains the JWT string and Exp its expiry.  The token
// carries the reservation id as its subject, so every authenticated
// request can be tied back to the session's claims without extra state.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a checkout session.
// It takes the signing secret, the reservation id, the terminal name and
// a TTL in minutes.  The JWT includes subject (sub = reservation id),
// terminal, expiration (exp) and issued at (iat) claims.
func NewSessionToken(secret, reservationID, terminal string, ttlMin int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      reservationID,
		"terminal": terminal,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
