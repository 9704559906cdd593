package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

const issuer = "spotiplay"

type offerClaims struct {
	Offer *models.Offer `json:"offer"`
	jwt.RegisteredClaims
}

// JWTCodec signs offers into HS256 tokens that expire after TTL.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec returns a codec signing with secret.
func NewJWTCodec(secret []byte, ttl time.Duration) *JWTCodec {
	return &JWTCodec{secret: secret, ttl: defaultTTL(ttl), now: time.Now}
}

func (c *JWTCodec) Seal(_ context.Context, offer *models.Offer) (string, error) {
	now := c.now()
	claims := offerClaims{
		Offer: offer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign offer: %w", err)
	}
	return s, nil
}

func (c *JWTCodec) Open(_ context.Context, token string) (*models.Offer, error) {
	if token == "" {
		return nil, invalid("missing offer token")
	}

	tok, err := jwt.ParseWithClaims(token, &offerClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, invalid("offer token rejected: %v", err)
	}

	claims, ok := tok.Claims.(*offerClaims)
	if !ok || !tok.Valid || claims.Offer == nil {
		return nil, invalid("offer token has no offer")
	}
	return claims.Offer, nil
}
