package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	queryGetValue    = `SELECT value FROM storage_values WHERE key = $1`
	queryUpsertValue = `INSERT INTO storage_values (id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	queryDeleteValue = `DELETE FROM storage_values WHERE key = $1`
)

// PostgresStorage keeps values in the storage_values table created by the
// migrations directory. The pool must have the google/uuid codec registered.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (p *PostgresStorage) Get(c context.Context, key string) ([]byte, error) {
	c, span := otel.Tracer.Start(
		c,
		"PostgresStorage Get",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Get").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("selecting value from database")
	var value []byte
	err := p.pool.QueryRow(c, queryGetValue, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("value not found in database")
		return nil, ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed selecting value from database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("selected value from database")
	return value, nil
}

func (p *PostgresStorage) Set(c context.Context, key string, value []byte) error {
	c, span := otel.Tracer.Start(
		c,
		"PostgresStorage Set",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Set").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("upserting value to database")
	if _, err := p.pool.Exec(c, queryUpsertValue, uuid.New(), key, value); err != nil {
		err = fmt.Errorf("failed upserting value to database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("upserted value to database")
	return nil
}

func (p *PostgresStorage) Delete(c context.Context, key string) error {
	c, span := otel.Tracer.Start(
		c,
		"PostgresStorage Delete",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresStorage Delete").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("deleting value from database")
	if _, err := p.pool.Exec(c, queryDeleteValue, key); err != nil {
		err = fmt.Errorf("failed deleting value from database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted value from database")
	return nil
}
