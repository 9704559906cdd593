package selection

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const sessionAudience = "session"

type sessionClaims struct {
	AccessToken  string    `json:"at"`
	RefreshToken string    `json:"rt,omitempty"`
	TokenExpiry  time.Time `json:"exp_at"`
	jwt.RegisteredClaims
}

// SessionCodec signs a visitor's OAuth2 token into an HS256 cookie value.
//
// The value is signed, not encrypted. It is only ever sent back to the visitor it belongs to.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec returns a codec signing with secret. Sessions expire after ttl, 30 days when unset.
func NewSessionCodec(secret []byte, ttl time.Duration) *SessionCodec {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionCodec{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns how long a sealed session stays valid.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// SealToken returns the signed session value for token.
func (c *SessionCodec) SealToken(token *oauth2.Token) (string, error) {
	if token == nil || token.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token", shared.ErrNotAuthenticated)
	}

	now := c.now()
	claims := sessionClaims{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return s, nil
}

// OpenToken verifies value and returns the token it carries.
//
// Missing, tampered and expired values fail with [shared.ErrNotAuthenticated].
func (c *SessionCodec) OpenToken(value string) (*oauth2.Token, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: no session", shared.ErrNotAuthenticated)
	}

	tok, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: session rejected: %v", shared.ErrNotAuthenticated, err)
	}

	claims, ok := tok.Claims.(*sessionClaims)
	if !ok || !tok.Valid || claims.AccessToken == "" {
		return nil, fmt.Errorf("%w: session has no token", shared.ErrNotAuthenticated)
	}

	return &oauth2.Token{
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       claims.TokenExpiry,
	}, nil
}
