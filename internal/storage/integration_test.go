package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
)

func TestRedisStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := redisContainer.ConnectionString(c)
	require.NoError(t, err)
	opt, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(c).Err())

	testStorage(t, NewRedisStorage(client))
}

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	c := context.Background()

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("storefront"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "migrations", "20261015090000_create_table_storage_values.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	require.NoError(t, err)
	pgConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(c))

	testStorage(t, NewPostgresStorage(pool))
}
