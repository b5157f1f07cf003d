package commands

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		dsn      string
		contains string
	}{
		{name: "unknown driver", driver: "sqlite", dsn: "postgres://localhost", contains: "failed to create migrate instance"},
		{name: "postgres without scheme", driver: "postgres", dsn: "invalid-connection-string", contains: "failed to create migrate instance"},
		{name: "mysql dsn", driver: "mysql", dsn: "user:pass@tcp(127.0.0.1:1)/archivist", contains: "failed to create migrate instance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			err := RunMigrations(logger, tt.driver, tt.dsn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Contains(t, logs.String(), "driver="+tt.driver)
			assert.NotContains(t, logs.String(), "pass@", "connection strings must not be logged")
		})
	}
}
