package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestValidateConfig(t *testing.T) {
	valid := &DatabaseConfig{Host: "h", Port: "5432", User: "u", DBName: "d", Password: "p", SSLMode: "disable"}
	assert.NoError(t, validateConfig(valid))

	assert.EqualError(t, validateConfig(nil), "Database config is nil")

	missingHost := *valid
	missingHost.Host = ""
	assert.EqualError(t, validateConfig(&missingHost), "Database host config is empty")
}

func TestNewConnection_InvalidPort(t *testing.T) {
	_, err := NewConnection(&DatabaseConfig{Host: "h", Port: "abc", User: "u", DBName: "d", Password: "p", SSLMode: "disable"})
	assert.ErrorContains(t, err, "invalid port number")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Warn, gormLogLevel("WARN"))
	assert.Equal(t, logger.Info, gormLogLevel("info"))
	assert.Equal(t, logger.Silent, gormLogLevel("SILENT"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}
