package infra

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/storage"
)

type CloseFunc func()

// NewStorage builds the storage backend named by cfg.Storage.Backend. The
// returned CloseFunc releases any connection the backend holds.
func NewStorage(c context.Context, cfg *config.Config) (storage.Storage, CloseFunc, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewStorage").
		Str(log.KeyStorageBackend, cfg.Storage.Backend).
		Logger()
	c = logger.WithContext(c)

	logger.Info().Msg("initializing storage")
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStorage(), func() {}, nil
	case "file":
		s, err := storage.NewFileStorage(cfg.Storage.Path)
		if err != nil {
			logger.Error().Err(err).Msg(err.Error())
			return nil, nil, err
		}
		return s, func() {}, nil
	case "redis":
		client, err := NewCacheClient(c, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStorage(client), func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msgf("failed closing redis with error=%s", err.Error())
			}
		}, nil
	case "postgres":
		pool, err := NewDatabaseClient(c, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgresStorage(pool), pool.Close, nil
	}
	err := fmt.Errorf("backend=%s with error=%w", cfg.Storage.Backend, inErrors.ErrUnsupportedBackend)
	logger.Error().Err(err).Msg(err.Error())
	return nil, nil, err
}
