package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/caderneta-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "prof", Password: "secret", Name: "caderneta"}
	assert.Equal(t, "host=db port=5432 user=prof password=secret dbname=caderneta sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}
