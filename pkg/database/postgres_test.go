package database

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-events-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "postgres",
		Password:       "it's secret",
		Name:           "event_management",
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}

	assert.Equal(t,
		`host=localhost port=5432 user=postgres password='it\'s secret' dbname=event_management sslmode=disable application_name=sma-events-api connect_timeout=5`,
		DSN(cfg),
	)

	cfg.URL = "postgres://app@db:5432/events?sslmode=require"
	assert.Equal(t, cfg.URL, DSN(cfg))
}

func TestDSNQuotesEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Name: "events", SSLMode: "disable"})
	assert.Contains(t, dsn, "password=''")
	assert.NotContains(t, dsn, "connect_timeout")
}

func TestConfigurePool(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	configurePool(db, config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
