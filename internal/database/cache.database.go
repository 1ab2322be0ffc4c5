package database

import (
	"context"
	"fmt"

	"spruce/config"

	"github.com/valkey-io/valkey-go"
)

// Valkey Database Index Organization
// Each database index provides logical separation for different cache categories
const (
	// GENERAL_CACHE_INDEX (DB 0) - General purpose caching
	GENERAL_CACHE_INDEX = iota

	// BILLS_CACHE_INDEX (DB 1) - User bill read cache
	// Invalidated on every ledger mutation
	BILLS_CACHE_INDEX

	// LOCKS_CACHE_INDEX (DB 2) - Advisory locks
	// Per-schedule generation locks guarding overlapping batch runs
	LOCKS_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 3) - Domain event pub/sub
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.Errorf("failed to initialize cache database", "address or port is empty")
	}

	var cacheDB Cache

	var err error
	cacheDB.General, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    GENERAL_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	cacheDB.Bills, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    BILLS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create bills valkey client", err)
	}

	cacheDB.Locks, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    LOCKS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create locks valkey client", err)
	}

	cacheDB.Events, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    EVENTS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB
	log.Info("cache database initialized")

	return nil
}

// FlushAllCaches empties every cache database. Used by the seed path to reach
// a clean state.
func (s *DB) FlushAllCaches() error {
	log := s.log.Function("FlushAllCaches")

	clients := map[string]CacheClient{
		"general": s.Cache.General,
		"bills":   s.Cache.Bills,
		"locks":   s.Cache.Locks,
		"events":  s.Cache.Events,
	}

	ctx := context.Background()
	for name, client := range clients {
		if client == nil {
			continue
		}
		if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
			return log.Err("failed to flush cache", err, "cache", name)
		}
		log.Info("flushed cache", "cache", name)
	}

	return nil
}
