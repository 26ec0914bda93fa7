package config

import (
	"os"
	"path/filepath"
	"testing"

	e "github.com/gartstein/ems/internal/ems/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
HTTP_PORT: 8081
DB_DRIVER: sqlite
DB_DSN: ":memory:"
KAFKA_BROKERS: []
ADMIN_EMAIL: admin@example.com
ADMIN_PASSWORD: secret
JWT_SECRET: 0123456789abcdef0123
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", baseYAML), "")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort, "defaults fill missing keys")
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 7, cfg.SessionMaxAgeDays)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.Production())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", baseYAML)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_LOG_QUERIES", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.Production())
	assert.True(t, cfg.DBLogQueries)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", baseYAML)
	envFile := writeFile(t, ".env", "SEED_DEMO_EMPLOYEES=25\n")
	t.Cleanup(func() { _ = os.Unsetenv("SEED_DEMO_EMPLOYEES") })

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.SeedDemoEmployees)
}

func TestLoadMissingFilesUseEnvironment(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "a-long-enough-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"bad email", map[string]string{"ADMIN_EMAIL": "nope"}, "ADMIN_EMAIL"},
		{"zero session", map[string]string{"SESSION_MAX_AGE_DAYS": "0"}, "SESSION_MAX_AGE_DAYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", baseYAML)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(path, "")
			require.Error(t, err)

			var verr *e.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Details)
			assert.Equal(t, tt.field, verr.Details[0].Field)
		})
	}
}

func TestLoadInvalidNumber(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := Load(writeFile(t, "config.yaml", baseYAML), "")
	assert.ErrorContains(t, err, "HTTP_PORT")
}
