package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "profile:"

// Store provides Redis persistence for pool profiles, one key per
// pool address.
type Store struct {
	client *redis.Client
}

func NewStore(addr, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) SaveProfile(ctx context.Context, address string, payload []byte) error {
	if address == "" {
		return fmt.Errorf("profile address required")
	}
	return s.client.Set(ctx, keyPrefix+address, payload, 0).Err()
}

func (s *Store) LoadProfiles(ctx context.Context) (map[string][]byte, error) {
	keys, err := s.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		payload, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		out[key[len(keyPrefix):]] = payload
	}
	return out, nil
}
