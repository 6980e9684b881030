package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgblog/apiserver/config"
)

func TestDriver(t *testing.T) {
	tests := map[string]string{
		"":           DriverSQLite,
		"sqlite":     DriverSQLite,
		"SQLite3":    DriverSQLite,
		"postgres":   DriverPostgres,
		"postgresql": DriverPostgres,
	}
	for in, want := range tests {
		got, err := Driver(config.Config{Database: config.DatabaseConfig{Driver: in}})
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Driver(config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	assert.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Host: "db", Port: 5433, User: "blog", Password: "p@ss", DBName: "blog_db", UseSSL: true,
	}}
	assert.Equal(t, "postgres://blog:p%40ss@db:5433/blog_db?sslmode=require", PostgresURL(cfg))
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "blog.db"),
	}}

	require.NoError(t, MigrateUp(cfg))
	// second run is a no-op
	require.NoError(t, MigrateUp(cfg))

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM posts`).Scan(&count))
	assert.Zero(t, count)

	require.NoError(t, MigrateDown(cfg))
	_, err = conn.Exec(`SELECT COUNT(1) FROM posts`)
	assert.Error(t, err)
}
