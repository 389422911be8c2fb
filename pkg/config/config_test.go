package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_QueryConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("QUERY_TIMEOUT_SECONDS", "10")
	os.Setenv("QUERY_MAX_PER_PAGE", "50")
	defer func() {
		os.Unsetenv("QUERY_TIMEOUT_SECONDS")
		os.Unsetenv("QUERY_MAX_PER_PAGE")
	}()

	// Load config
	cfg, err := Load()
	assert.NoError(t, err)

	// Verify query config
	assert.Equal(t, 10, cfg.Query.TimeoutSeconds)
	assert.Equal(t, 50, cfg.Query.MaxPerPage)
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure env vars are cleared
	os.Unsetenv("QUERY_TIMEOUT_SECONDS")
	os.Unsetenv("QUERY_MAX_PER_PAGE")
	os.Unsetenv("DB_NAME")

	cfg, err := Load()
	assert.NoError(t, err)

	// Verify defaults
	assert.Equal(t, 30, cfg.Query.TimeoutSeconds)
	assert.Equal(t, 200, cfg.Query.MaxPerPage)
	assert.Equal(t, "care_directory", cfg.Database.Database)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "care_directory",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=care_directory sslmode=disable", cfg.DatabaseDSN())
}
