package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "custody", Password: "pw", DBName: "custody"}
	assert.Equal(t, "custody:pw@tcp(db:3307)/custody?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"info", "warn", "error", "silent", ""} {
		assert.NotNil(t, newLogger(level))
	}
}
