package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"casaviva/server/internal/models"
)

// Key naming is part of the wire contract; other marketplace services read
// the same keys.
const (
	buyerKeyFormat  = "buyer_id:%s:reservations_buyer"
	sellerKeyFormat = "property_on_sale_id:%s:reservations_seller"
)

// KeepTTL leaves the key's remaining time to live untouched on rewrite.
const KeepTTL = redis.KeepTTL

// RedisBuyerStore persists buyer-side reservation records: one JSON array of
// entries per buyer, no TTL.
type RedisBuyerStore struct {
	client *redis.Client
}

func NewRedisBuyerStore(client *redis.Client) *RedisBuyerStore {
	return &RedisBuyerStore{client: client}
}

// Get returns the buyer's entries, or nil when no record exists.
func (s *RedisBuyerStore) Get(ctx context.Context, buyerID string) ([]models.BuyerEntry, error) {
	key := fmt.Sprintf(buyerKeyFormat, buyerID)
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer record: %w", err)
	}

	var entries []models.BuyerEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("corrupt buyer record for %s: %w", buyerID, err)
	}
	return entries, nil
}

func (s *RedisBuyerStore) Put(ctx context.Context, buyerID string, entries []models.BuyerEntry) error {
	key := fmt.Sprintf(buyerKeyFormat, buyerID)
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode buyer record: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write buyer record: %w", err)
	}
	return nil
}

// Ping reports whether the reservation store is reachable.
func (s *RedisBuyerStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisBuyerStore) Delete(ctx context.Context, buyerID string) error {
	key := fmt.Sprintf(buyerKeyFormat, buyerID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete buyer record: %w", err)
	}
	return nil
}

// RedisSellerStore persists seller-side reservation records: one JSON object
// per property, with a TTL that expires at the open-house event.
type RedisSellerStore struct {
	client *redis.Client
}

func NewRedisSellerStore(client *redis.Client) *RedisSellerStore {
	return &RedisSellerStore{client: client}
}

// Get returns the property's seller record, or nil when no record exists
// (never created, or already expired at event time).
func (s *RedisSellerStore) Get(ctx context.Context, propertyID string) (*models.SellerRecord, error) {
	key := fmt.Sprintf(sellerKeyFormat, propertyID)
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seller record: %w", err)
	}

	var record models.SellerRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("corrupt seller record for %s: %w", propertyID, err)
	}
	return &record, nil
}

// Put writes the seller record. Pass a positive ttl to (re)arm expiry at the
// event instant, or KeepTTL to preserve the remaining one.
func (s *RedisSellerStore) Put(ctx context.Context, propertyID string, record *models.SellerRecord, ttl time.Duration) error {
	key := fmt.Sprintf(sellerKeyFormat, propertyID)
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode seller record: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write seller record: %w", err)
	}
	return nil
}

func (s *RedisSellerStore) Delete(ctx context.Context, propertyID string) error {
	key := fmt.Sprintf(sellerKeyFormat, propertyID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete seller record: %w", err)
	}
	return nil
}
