package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const keyPrefix = "spotiplay:offer:"

// Store is the key-value subset the Valkey codec needs. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ValkeyStore implements [Store] over a Valkey server.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the server at rawURL (redis:// or valkey:// form) and pings it.
func NewValkeyStore(rawURL string) (*ValkeyStore, error) {
	opt, err := valkey.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse Valkey URL: %v", shared.ErrInvalidConfig, err)
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Valkey client: %v", shared.ErrServiceUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to Valkey: %v", shared.ErrServiceUnavailable, err)
	}

	return &ValkeyStore{client: client}, nil
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return result.AsBytes()
}

func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

// Close releases the connection.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

// ValkeyCodec keeps offers server-side under a random key; the token is the key.
type ValkeyCodec struct {
	store Store
	ttl   time.Duration
}

// NewValkeyCodec returns a codec storing offers in store for ttl.
func NewValkeyCodec(store Store, ttl time.Duration) *ValkeyCodec {
	return &ValkeyCodec{store: store, ttl: defaultTTL(ttl)}
}

func (c *ValkeyCodec) Seal(ctx context.Context, offer *models.Offer) (string, error) {
	data, err := json.Marshal(offer)
	if err != nil {
		return "", fmt.Errorf("encode offer: %w", err)
	}

	token := shared.GenerateID()
	if err := c.store.Set(ctx, keyPrefix+token, data, c.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (c *ValkeyCodec) Open(ctx context.Context, token string) (*models.Offer, error) {
	if token == "" {
		return nil, invalid("missing offer token")
	}

	data, err := c.store.Get(ctx, keyPrefix+token)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, invalid("offer %s expired or unknown", token)
	}

	var offer models.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, invalid("stored offer is corrupt: %v", err)
	}
	return &offer, nil
}

// Discard removes a stored offer once it has been used.
func (c *ValkeyCodec) Discard(ctx context.Context, token string) error {
	return c.store.Delete(ctx, keyPrefix+token)
}
