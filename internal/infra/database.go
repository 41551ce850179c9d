package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
)

func PostgresURL(dbConfig config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbConfig.Username,
		dbConfig.Password,
		dbConfig.Host,
		int(dbConfig.Port),
		dbConfig.Name,
	)
}

// NewDatabaseClient opens a traced pgx pool and migrates the schema up.
func NewDatabaseClient(c context.Context, dbConfig config.Database) (*pgxpool.Pool, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewDatabaseClient").
		Logger()

	postgresUrl := PostgresURL(dbConfig)

	logger = logger.With().Str(log.KeyProcess, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(postgresUrl)
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	pgxConfig.MaxConns = int32(dbConfig.MaxConnections)
	pgxConfig.MinConns = int32(dbConfig.MinConnections)
	pgxConfig.MaxConnLifetime = 15 * time.Minute
	pgxConfig.MaxConnIdleTime = 5 * time.Minute
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(log.KeyProcess, "attaching otel tracer to pgx").Logger()
	logger.Info().Msg("attaching otel tracer to pgx")
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	logger.Info().Msg("attached otel tracer to pgx")

	logger = logger.With().Str(log.KeyProcess, "registering uuid codec").Logger()
	logger.Info().Msg("registering uuid codec")
	pgxConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("registered uuid codec")

	logger = logger.With().Str(log.KeyProcess, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(log.KeyProcess, "ping db").Logger()
	logger.Info().Msg("ping db")
	if err = pool.Ping(c); err != nil {
		pool.Close()
		err = fmt.Errorf("failed ping db with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("successed ping db")

	c = logger.WithContext(c)
	if err = Migrate(c, pool, dbConfig.MigrationPath); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Migrate applies every pending up migration found at migrationPath.
func Migrate(c context.Context, pool *pgxpool.Pool, migrationPath string) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra Migrate").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing db driver").Logger()
	logger.Info().Msg("initializing db driver")
	db := stdlib.OpenDBFromPool(pool)
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed creating postgres driver to do migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized db driver")

	logger = logger.With().Str(log.KeyProcess, "initializing migration").Logger()
	logger.Info().Msg("initializing migration")
	migration, err := migrate.NewWithDatabaseInstance(migrationPath, "postgres", driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized migration")

	logger = logger.With().Str(log.KeyProcess, "migration up").Logger()
	logger.Info().Msg("migration up")
	err = migration.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("successed migration up")

	return nil
}
