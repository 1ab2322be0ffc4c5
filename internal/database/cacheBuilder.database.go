package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type KeyType interface {
	string | uuid.UUID
}

type CacheBuilder struct {
	cache      valkey.Client
	key        string
	value      string
	ttl        time.Duration
	ctx        context.Context
	ctxTimeout time.Duration
	err        error
}

func NewCacheBuilder[K KeyType](cache valkey.Client, key K) *CacheBuilder {
	cacheBuilder := CacheBuilder{
		cache:      cache,
		ttl:        1 * time.Hour,
		ctxTimeout: 5 * time.Second,
		ctx:        context.Background(),
	}

	switch k := any(key).(type) {
	case string:
		cacheBuilder.key = k
	case uuid.UUID:
		cacheBuilder.key = k.String()
	}

	return &cacheBuilder
}

func (cb *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	cb.ctx = ctx
	return cb
}

func (cb *CacheBuilder) WithStruct(value any) *CacheBuilder {
	bytes, err := json.Marshal(value)
	if err != nil {
		cb.err = fmt.Errorf("failed to marshal value to json: %w", err)
		return cb
	}

	cb.value = string(bytes)
	return cb
}

func (cb *CacheBuilder) WithHash(hash string) *CacheBuilder {
	if hash != "" {
		cb.key = fmt.Sprintf("%s:%s", hash, cb.key)
	}

	return cb
}

func (cb *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	cb.ttl = ttl
	return cb
}

// Get unmarshals the cached value into target, returning whether it was found.
func (cb *CacheBuilder) Get(target any) (bool, error) {
	if cb.err != nil {
		return false, cb.err
	}
	if cb.cache == nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(cb.ctx, cb.ctxTimeout)
	defer cancel()

	result := cb.cache.Do(ctx, cb.cache.B().Get().Key(cb.key).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache key %s: %w", cb.key, err)
	}

	raw, err := result.ToString()
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", cb.key, err)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache key %s: %w", cb.key, err)
	}

	return true, nil
}

func (cb *CacheBuilder) Set() error {
	if cb.err != nil {
		return cb.err
	}
	if cb.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(cb.ctx, cb.ctxTimeout)
	defer cancel()

	cmd := cb.cache.B().Set().Key(cb.key).Value(cb.value).Ex(cb.ttl).Build()
	if err := cb.cache.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", cb.key, err)
	}

	return nil
}

func (cb *CacheBuilder) Delete() error {
	if cb.err != nil {
		return cb.err
	}
	if cb.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(cb.ctx, cb.ctxTimeout)
	defer cancel()

	if err := cb.cache.Do(ctx, cb.cache.B().Del().Key(cb.key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", cb.key, err)
	}

	return nil
}
