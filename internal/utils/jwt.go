package utils // package utils provides helper functions for token creation and hashing

import (
    "errors" // errors reports bad token input
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// OperatorRole is the role claim carried by every operator token.
const OperatorRole = "OPERATOR"

// AccessToken represents a signed JWT access token along with its expiry.
// Operators send it in the Authorization header when stopping a run.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// ErrEmptySecret is returned when a token would be signed with no key.
var ErrEmptySecret = errors.New("jwt secret is empty")

// NewAccessToken builds and signs an HS256 JWT for subject.  The claims are
// sub, role, exp and iat; ttlMin below one falls back to fifteen minutes.
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, ErrEmptySecret
    }
    if ttlMin < 1 {
        ttlMin = 15
    }
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
