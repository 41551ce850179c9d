package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const redisKeyFormat = "storefront:%s"

type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (r *RedisStorage) Get(c context.Context, key string) ([]byte, error) {
	c, span := otel.Tracer.Start(
		c,
		"RedisStorage Get",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Get").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("getting value from redis")
	value, err := r.client.Get(c, fmt.Sprintf(redisKeyFormat, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("value not found in redis")
		return nil, ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed getting value from redis with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("got value from redis")
	return value, nil
}

func (r *RedisStorage) Set(c context.Context, key string, value []byte) error {
	c, span := otel.Tracer.Start(
		c,
		"RedisStorage Set",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Set").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("setting value to redis")
	if err := r.client.Set(c, fmt.Sprintf(redisKeyFormat, key), value, 0).Err(); err != nil {
		err = fmt.Errorf("failed setting value to redis with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set value to redis")
	return nil
}

func (r *RedisStorage) Delete(c context.Context, key string) error {
	c, span := otel.Tracer.Start(
		c,
		"RedisStorage Delete",
		trace.WithAttributes(attribute.String(log.KeyStorageKey, key)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStorage Delete").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("deleting value from redis")
	if err := r.client.Del(c, fmt.Sprintf(redisKeyFormat, key)).Err(); err != nil {
		err = fmt.Errorf("failed deleting value from redis with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted value from redis")
	return nil
}
