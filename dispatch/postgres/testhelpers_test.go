//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
Test Helpers para PostgreSQL com Testcontainers

Referências:
- https://golang.testcontainers.org/modules/postgres/
- https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
*/

const (
	defaultDatabase = "testdb"
	defaultUser     = "testuser"
	defaultPassword = "testpass"
)

// PostgresContainer encapsula o container e a conexão
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	ConnStr   string
}

// SetupPostgresContainer cria e inicia um container PostgreSQL com o Schema aplicado
func SetupPostgresContainer(t testing.TB, ctx context.Context) (*PostgresContainer, func()) {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(defaultDatabase),
		postgres.WithUsername(defaultUser),
		postgres.WithPassword(defaultPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))

	_, err = db.ExecContext(ctx, Schema)
	require.NoError(t, err)

	container := &PostgresContainer{
		Container: pgContainer,
		DB:        db,
		ConnStr:   connStr,
	}

	cleanup := func() {
		if db != nil {
			_ = db.Close()
		}
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
	}

	return container, cleanup
}

// CreateTestRepository cria um repositório para testes
func CreateTestRepository(t testing.TB, connStr string) *Repository {
	t.Helper()

	repo, err := NewRepository(connStr)
	require.NoError(t, err)

	return repo
}

// AssertLogCount verifica quantas tentativas existem para um dia
func AssertLogCount(t *testing.T, ctx context.Context, db *sql.DB, date string, expected int) {
	t.Helper()

	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_logs WHERE dispatch_date = $1", date).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}
