package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// CookieName carries the session token for browser requests.
const CookieName = "leads_session"

const (
	defaultTokenTTL = 12 * time.Hour
	tokenIssuer     = "go-leads-dashboard"
)

// ErrInvalidToken is returned for missing, malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("httpapi: invalid session token")

// SessionTokens issues and verifies HS256 tokens that bind a client to the active session id.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens builds a signer. An empty secret is rejected.
func NewSessionTokens(secret string, ttl time.Duration) (*SessionTokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("httpapi: token secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for identity. The session id travels as the token id.
func (t *SessionTokens) Issue(identity leads.Identity) (string, time.Time, error) {
	if identity.SessionID == "" {
		return "", time.Time{}, errors.New("httpapi: identity has no session id")
	}
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   identity.Email,
		ID:        identity.SessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("httpapi: sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature, issuer and expiry, returning the session id.
func (t *SessionTokens) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// Cookie renders the session cookie for a token.
func (t *SessionTokens) Cookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExtractToken finds a token in the Authorization header, the session cookie header or the
// token query value, in that order.
func ExtractToken(authorization, cookieHeader, query string) string {
	if fields := strings.Fields(authorization); len(fields) == 2 && strings.EqualFold(fields[0], "Bearer") {
		return fields[1]
	}
	if cookieHeader != "" {
		if cookies, err := http.ParseCookie(cookieHeader); err == nil {
			for _, c := range cookies {
				if c.Name == CookieName && c.Value != "" {
					return c.Value
				}
			}
		}
	}
	return strings.TrimSpace(query)
}
