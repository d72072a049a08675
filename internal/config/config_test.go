package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/core/apperror"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/admin", cfg.HTTP.Prefix)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*1024, cfg.Audit.CompressThreshold)
	assert.True(t, cfg.IsDevelopment())

	lc := cfg.LoggerConfig()
	assert.True(t, lc.Development)
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "development", lc.Fields["env"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADMIN_DATABASE_DIALECT", "postgres")
	t.Setenv("ADMIN_DATABASE_DSN", "postgres://admin@localhost/shop")
	t.Setenv("ADMIN_HTTP_CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	t.Setenv("ADMIN_HTTP_READ_TIMEOUT", "5s")
	t.Setenv("ADMIN_APP_ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://admin@localhost/shop", cfg.Database.DSN)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.False(t, cfg.IsDevelopment())

	db := cfg.DBConfig()
	assert.Equal(t, "postgres", db.Dialect)
	assert.Equal(t, 25, db.MaxOpenConns)
}

func TestLoad_DotEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ADMIN_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ADMIN_LOG_LEVEL") })

	path := filepath.Join(dir, "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
  prefix: /backoffice
database:
  dialect: mysql
  dsn: "admin:secret@tcp(localhost:3306)/shop"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "/backoffice", cfg.HTTP.Prefix)
	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"UnknownDialect", "database.dialect", "oracle"},
		{"EmptyDSN", "database.dsn", " "},
		{"RelativePrefix", "http.prefix", "admin"},
		{"NegativeThreshold", "audit.compress_threshold", -1},
		{"UnknownLogFormat", "log.format", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)

			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.True(t, apperror.IsConfiguration(err), "got %v", err)
		})
	}
}
