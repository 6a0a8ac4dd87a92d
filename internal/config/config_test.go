package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: memory
jwt:
  secret: file-secret
attendance:
  scan_limit: 100
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("NOTIFIER_WORKERS", "7")
	t.Setenv("FEES_DEFAULT_TOTAL", "99000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 7, cfg.Notifier.Workers)
	assert.Equal(t, int64(99000), cfg.Fees.DefaultTotal)
	assert.Equal(t, 100, cfg.Attendance.ScanLimit)
	// untouched defaults survive
	assert.Equal(t, "local", cfg.Identity.Provider)
	assert.Equal(t, 5, cfg.Database.TxMaxAttempts)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{
			name: "local provider without secret",
			body: "database:\n  driver: memory\n",
		},
		{
			name: "unknown driver",
			body: "database:\n  driver: mongo\njwt:\n  secret: x\n",
		},
		{
			name: "bad duration",
			body: "database:\n  driver: memory\njwt:\n  secret: x\nsaga:\n  grace_period: soon\n",
		},
		{
			name: "firebase without credentials",
			body: "database:\n  driver: memory\nidentity:\n  provider: firebase\n",
		},
		{
			name: "bad env integer",
			body: "database:\n  driver: memory\njwt:\n  secret: x\n",
			env:  map[string]string{"NOTIFIER_WORKERS": "many"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
