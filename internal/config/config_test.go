package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/animes/internal/sec"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "empty file uses defaults",
			yaml: ``,
		},
		{
			name: "valid config",
			yaml: `
log_level: debug
web_address: "127.0.0.1:9000"
db_filepath: /tmp/animes.sqlite
read_timeout: 2s
security:
  realm: test
  bcrypt_cost: 4
  access_rules:
    - pattern: /actuator/**
      access: public
    - pattern: /**
      access: role
      role: ADMIN
`,
		},
		{
			name:    "unknown field",
			yaml:    `root_uri: "https://example.com"`,
			wantErr: "failed to unmarshal config file",
		},
		{
			name:    "invalid yaml syntax",
			yaml:    `invalid: [yaml: content`,
			wantErr: "failed to unmarshal config file",
		},
		{
			name:    "invalid log level",
			yaml:    `log_level: loud`,
			wantErr: "failed to unmarshal config file",
		},
		{
			name:    "empty db path fails validation",
			yaml:    `db_filepath: ""`,
			wantErr: "config validation failed",
		},
		{
			name:    "bad address fails validation",
			yaml:    `web_address: "not an address"`,
			wantErr: "config validation failed",
		},
		{
			name:    "negative timeout fails validation",
			yaml:    `write_timeout: -1s`,
			wantErr: "config validation failed",
		},
		{
			name:    "bcrypt cost out of range",
			yaml:    "security:\n  bcrypt_cost: 40",
			wantErr: "config validation failed",
		},
		{
			name:    "empty rules fail validation",
			yaml:    "security:\n  access_rules: []",
			wantErr: "config validation failed",
		},
		{
			name:    "role rule without role",
			yaml:    "security:\n  access_rules:\n    - pattern: /**\n      access: role",
			wantErr: "requires a role",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := writeTestConfig(t, test.yaml)
			cfg, err := Load(path)

			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestLoad_Values(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, `
log_level: warn
db_filepath: /tmp/animes.sqlite
read_timeout: 2s
security:
  bcrypt_cost: 5
  access_rules:
    - pattern: /animes/admin/**
      methods: [POST, PUT, DELETE]
      access: role
      role: ADMIN
    - pattern: /**
      access: authenticated
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "/tmp/animes.sqlite", cfg.DBFilepath)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, def.WriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, def.WebAddress, cfg.WebAddress)
	assert.Equal(t, sec.DefaultRealm, cfg.Security.Realm)
	assert.Equal(t, 5, cfg.Security.BcryptCost)
	assert.Equal(t, []sec.Rule{
		{
			Pattern: "/animes/admin/**",
			Methods: []string{"POST", "PUT", "DELETE"},
			Access:  sec.AccessRole,
			Role:    sec.RoleAdmin,
		},
		{Pattern: "/**", Access: sec.AccessAuthenticated},
	}, cfg.Security.Rules)
}

func TestLoad_EnvOverrides(t *testing.T) {
	// t.Setenv is incompatible with t.Parallel
	t.Setenv("ANIMES_WEB_ADDRESS", "0.0.0.0:8081")
	t.Setenv("ANIMES_LOG_LEVEL", "error")
	t.Setenv("ANIMES_WRITE_TIMEOUT", "30s")
	t.Setenv("ANIMES_SECURITY_REALM", "from-env")

	cfg, err := Load(writeTestConfig(t, `web_address: "127.0.0.1:9000"`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8081", cfg.WebAddress)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "from-env", cfg.Security.Realm)
	assert.Equal(t, sec.DefaultRules(), cfg.Security.Rules)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	require.ErrorContains(t, err, "failed to read config file")
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, cfg)
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	def := Default()
	data, err := Marshal(def)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, def, cfg)
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}
