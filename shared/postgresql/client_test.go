package postgresql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "explicit ssl mode",
			config:   Config{Host: "db", Port: 5432, User: "worker", Password: "pw", Database: "journal", SSLMode: "require"},
			expected: "host=db port=5432 user=worker password=pw dbname=journal sslmode=require",
		},
		{
			name:     "ssl mode defaults to disable",
			config:   Config{Host: "localhost", Port: 5433, User: "u", Password: "p", Database: "d"},
			expected: "host=localhost port=5433 user=u password=p dbname=d sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection reset"))

	sdb := sqlx.NewDb(db, "postgres")
	assert.NoError(t, HealthCheck(context.Background(), sdb))

	err = HealthCheck(context.Background(), sdb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewClient(&Config{
		Host:                 "127.0.0.1",
		Port:                 1,
		User:                 "u",
		Database:             "d",
		ConnectRetries:       1,
		ConnectRetryInterval: time.Millisecond,
	}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
