package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/database"
)

// PostgresStore implements Store on the idempotency_records table.
// Expired rows are never returned and are removed by Sweep.
type PostgresStore struct {
	queries *database.Queries
}

func NewPostgresStore(queries *database.Queries) *PostgresStore {
	return &PostgresStore{queries: queries}
}

func (s *PostgresStore) Name() string { return config.CacheBackendPostgres }

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rec, err := s.queries.GetIdempotencyRecord(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency record: %w", err)
	}
	return rec.Payload, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.queries.UpsertIdempotencyRecord(ctx, database.UpsertIdempotencyRecordParams{
		Key:       key,
		Payload:   value,
		ExpiresAt: pgtype.Timestamptz{Time: time.Now().Add(ttl), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("failed to write idempotency record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.queries.IsDatabaseRunning(ctx)
	return err
}

// Close is a no-op: the connection pool belongs to the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	return s.queries.DeleteExpiredIdempotencyRecords(ctx)
}
