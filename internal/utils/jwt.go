package utils // package utils provides helpers for token signing and password hashing

import (
	"errors" // sentinel errors for token parsing
	"time"   // expirations and issue times

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, expired, signed with another key or missing required claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims are the claims this service puts into an access token.  The
// session id keys the server-side session record, so a token stops working
// as soon as that record is deleted at sign-out.
type TokenClaims struct {
	UserID    string
	SessionID string
	Role      string
	ExpiresAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT carrying the user id (sub),
// the session id (sid) and the role.  ttl bounds the token lifetime.
func NewAccessToken(secret, userID, sessionID, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  userID,
		"sid":  sessionID,
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

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC signing methods are accepted.
func ParseAccessToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	sid, _ := mc["sid"].(string)
	if sub == "" || sid == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	role, _ := mc["role"].(string)
	var exp time.Time
	if d, err := mc.GetExpirationTime(); err == nil && d != nil {
		exp = d.Time
	}
	return TokenClaims{UserID: sub, SessionID: sid, Role: role, ExpiresAt: exp}, nil
}
