package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/harshaldxb/leadengine/internal/models"
)

const inquiryKeyPrefix = "inquiry:"

// InquiryRedisStore keeps one attribution per client under a key whose TTL
// matches the attribution's expiry.
type InquiryRedisStore struct {
	rdb *redis.Client
}

func NewInquiryRedisStore(rdb *redis.Client) *InquiryRedisStore {
	return &InquiryRedisStore{rdb: rdb}
}

func inquiryKey(clientID string) string {
	return inquiryKeyPrefix + clientID
}

// CreateIfAbsent uses SETNX so concurrent first engagements resolve to one
// agent. Redis drops the key at expiry, which frees the client for a new one.
func (s *InquiryRedisStore) CreateIfAbsent(ctx context.Context, a *models.InquiryAttribution) (*models.InquiryAttribution, error) {
	ttl := a.ExpiresAt.Sub(a.CreatedAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	key := inquiryKey(a.ClientID)
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, key, data, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return a, nil
		}
		existing, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		// Expired between SETNX and GET; try again.
	}
	return nil, errors.New("inquiry attribution contended")
}

// Take reads and deletes the attribution in one GETDEL.
func (s *InquiryRedisStore) Take(ctx context.Context, clientID string) (*models.InquiryAttribution, error) {
	raw, err := s.rdb.GetDel(ctx, inquiryKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a models.InquiryAttribution
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *InquiryRedisStore) get(ctx context.Context, key string) (*models.InquiryAttribution, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a models.InquiryAttribution
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
