package commands

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("invalid-driver", func(t *testing.T) {
		err := RunMigrations(logger, "invalid", "postgres://localhost")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
		require.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("invalid-connection-string", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "invalid-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})
}

func TestMigrationsSource(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{driver: "postgres", want: "file://migrations/postgresql"},
		{driver: "pgx", want: "file://migrations/postgresql"},
		{driver: "mysql", want: "file://migrations/mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := migrationsSource(tt.driver)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := migrationsSource("sqlite")
	require.Error(t, err)
}
