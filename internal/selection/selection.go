// Package selection round-trips the record of offered candidates between the resolve and finalize requests.
//
// The engine keeps no session. A [Codec] turns a [models.Offer] into an opaque token that the
// web layer puts in a hidden form field and turns back into the same Offer on submit.
package selection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// Codec seals and opens offers.
type Codec interface {
	Seal(ctx context.Context, offer *models.Offer) (string, error)
	Open(ctx context.Context, token string) (*models.Offer, error)
}

// Discarder is implemented by codecs that can invalidate a token once its offer has been used.
type Discarder interface {
	Discard(ctx context.Context, token string) error
}

// Backend names accepted by [New].
const (
	BackendJWT    = "jwt"
	BackendValkey = "valkey"
	BackendNone   = "none"
)

// New returns the codec named by cfg.Backend, or nil for "none" meaning the round trip is trusted.
func New(cfg shared.SelectionConfig) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendNone:
		return nil, nil
	case "", BackendJWT:
		secret := cfg.Secret
		if secret == "" {
			generated, err := shared.GenerateState()
			if err != nil {
				return nil, fmt.Errorf("failed to generate selection secret: %w", err)
			}
			secret = generated
		}
		return NewJWTCodec([]byte(secret), cfg.TTLDuration()), nil
	case BackendValkey:
		store, err := NewValkeyStore(cfg.ValkeyURL)
		if err != nil {
			return nil, err
		}
		return NewValkeyCodec(store, cfg.TTLDuration()), nil
	default:
		return nil, fmt.Errorf("%w: unknown selection backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrInvalidSelection, fmt.Sprintf(format, args...))
}

func defaultTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 30 * time.Minute
	}
	return ttl
}
