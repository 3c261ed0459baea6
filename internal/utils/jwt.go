package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification outcomes.  The three failures are distinct sentinels so the
// middleware can report the right condition: no credential at all, a
// credential that was valid but has elapsed, and everything else (bad
// signature, bad shape, wrong algorithm).
var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived (one hour by default) and presented in the
// Authorization header.  There is no server-side session or revocation
// list: expiry is the only invalidation mechanism, so any process holding
// the signing secret can verify any issued token.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a subject.  The claims
// are subject (sub), expiration (exp) and issued at (iat).  The subject's
// role is deliberately not a claim: roles are resolved from the identity
// store on every request so they always reflect current persisted state.
func NewAccessToken(secret string, subjectID uint64, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": subjectID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a raw token string and returns the
// subject id it carries.  It returns ErrTokenMissing for an empty string,
// ErrTokenExpired when the signature is valid but the validity window has
// elapsed, and ErrTokenMalformed for every other failure.
func VerifyAccessToken(secret, raw string) (uint64, error) {
	if raw == "" {
		return 0, ErrTokenMissing
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenMalformed
	}
	if !tok.Valid {
		return 0, ErrTokenMalformed
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrTokenMalformed
	}
	switch sub := claims["sub"].(type) {
	case float64:
		// Numeric JSON claims decode as float64.
		return uint64(sub), nil
	case string:
		if n, err := strconv.ParseUint(sub, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, ErrTokenMalformed
}
