package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"roombooking/pkg/config"
)

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, Retryable(fmt.Errorf("lock room: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, Retryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, Retryable(errors.New("boom")))
}

func TestConnStrings(t *testing.T) {
	cfg := config.Config{DB: config.DBConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "n"}}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", runtimeConnString(cfg))

	cfg.DatabaseURL = "postgres://pooler/db"
	assert.Equal(t, "postgres://pooler/db", migrationConnString(cfg))

	cfg.DirectURL = "postgres://direct/db"
	assert.Equal(t, "postgres://direct/db", migrationConnString(cfg))
}
