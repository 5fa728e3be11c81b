package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("local defaults", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}
		cfg := DefaultTestDBConfig()
		assert.Equal(t, TestDBConfig{
			Host:     "localhost",
			Port:     "55432",
			User:     "mailq",
			Password: "mailq",
			DBName:   "mailq",
		}, cfg)
	})

	t.Run("CI overrides", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")
		cfg := DefaultTestDBConfig()
		assert.Equal(t, "postgres", cfg.Host)
		assert.Equal(t, "5432", cfg.Port)
	})

	t.Run("dsn", func(t *testing.T) {
		t.Setenv("DB_SSL_MODE", "")
		cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n"}
		assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.dsn())
	})
}

func TestNewEmailJobRequest_Valid(t *testing.T) {
	req := NewEmailJobRequest().WithRecipient("bob@example.com").WithDelay(30).Build()
	assert.NoError(t, req.Validate())
	assert.Equal(t, "bob@example.com", req.Recipient)
	assert.Equal(t, 30, req.DelaySeconds)
	assert.NotEmpty(t, req.SubmissionID)
}
