package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides Postgres persistence for pool profiles.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveProfile upserts one serialized profile.
func (s *Store) SaveProfile(ctx context.Context, address string, payload []byte) error {
	if address == "" {
		return fmt.Errorf("profile address required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_profiles (pool_address, payload, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (pool_address) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`, address, payload)
	return err
}

// SaveProfiles upserts a batch of serialized profiles.
func (s *Store) SaveProfiles(ctx context.Context, profiles map[string][]byte) error {
	if len(profiles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for address, payload := range profiles {
		batch.Queue(`
			INSERT INTO pool_profiles (pool_address, payload, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (pool_address) DO UPDATE
			SET payload = EXCLUDED.payload, updated_at = now()
		`, address, payload)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range profiles {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadProfiles returns every stored profile payload keyed by address.
func (s *Store) LoadProfiles(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.pool.Query(ctx, `SELECT pool_address, payload FROM pool_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var address string
		var payload []byte
		if err := rows.Scan(&address, &payload); err != nil {
			return nil, err
		}
		out[address] = payload
	}
	return out, rows.Err()
}
