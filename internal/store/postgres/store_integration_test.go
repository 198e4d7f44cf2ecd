//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/store/storetest"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("leadbook"),
		tcpostgres.WithUsername("leadbook"),
		tcpostgres.WithPassword("leadbook"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestStoreConformance(t *testing.T) {
	dsn := startPostgres(t)
	require.NoError(t, MigrateUp(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	storetest.Run(t, func(t *testing.T) core.Store {
		_, err := pool.Exec(context.Background(), `TRUNCATE leads CASCADE`)
		require.NoError(t, err)
		return New(pool)
	})
}

func TestMigrateDownAndUp(t *testing.T) {
	dsn := startPostgres(t)

	require.NoError(t, MigrateUp(dsn))
	require.NoError(t, MigrateUp(dsn), "second run is a no-op")
	require.NoError(t, MigrateDown(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'leads')`).Scan(&exists)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, MigrateUp(dsn))
}
