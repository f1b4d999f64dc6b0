package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, path string)
		validate      func(t *testing.T, cfg *Config)
		checkFile     func(t *testing.T, path string)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func(t *testing.T, path string) {},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://www.wikidata.org/w/api.php", cfg.API.Endpoint)
				assert.Equal(t, MaxBatchSize, cfg.API.BatchSize)
				assert.Equal(t, 3, cfg.Request.Retries)
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Contains(t, string(content), "endpoint: https://www.wikidata.org/w/api.php")
				assert.Contains(t, string(content), "# Wikibase client configuration")
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func(t *testing.T, path string) {
				data := "api:\n  endpoint: https://test.wikidata.org/w/api.php\n  batch_size: 10\nrequest:\n  timeout: 2m\n  backoff:\n    max_delay: 1d\n"
				require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://test.wikidata.org/w/api.php", cfg.API.Endpoint)
				assert.Equal(t, 10, cfg.API.BatchSize)
				assert.Equal(t, 2*time.Minute, cfg.Request.Timeout.Std())
				assert.Equal(t, Day, cfg.Request.Backoff.MaxDelay.Std())
				assert.Equal(t, []string{"en"}, cfg.API.Languages)
			},
		},
		{
			name: "Env_Override_NotPersisted",
			setup: func(t *testing.T, path string) {
				t.Setenv(EnvCSRFToken, "env_secret_token")
				t.Setenv(EnvAPIURL, "http://localhost:8181/w/api.php")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env_secret_token", cfg.API.CSRFToken)
				assert.Equal(t, "http://localhost:8181/w/api.php", cfg.API.Endpoint)
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.NotContains(t, string(content), "env_secret_token")
			},
		},
		{
			name: "DotEnv_File",
			setup: func(t *testing.T, path string) {
				// godotenv does not override variables that are already set.
				t.Setenv(EnvUserAgent, "")
				os.Unsetenv(EnvUserAgent)
				envFile := filepath.Join(filepath.Dir(path), ".env")
				require.NoError(t, os.WriteFile(envFile, []byte(EnvUserAgent+"=TestBot/1.0 (ops@example.org)\n"), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "TestBot/1.0 (ops@example.org)", cfg.API.UserAgent)
			},
		},
		{
			name: "Invalid_Endpoint",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("api:\n  endpoint: not-a-url\n"), 0o644))
			},
			expectedError: true,
		},
		{
			name: "Invalid_BatchSize",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("api:\n  batch_size: 500\n"), 0o644))
			},
			expectedError: true,
		},
		{
			name: "Invalid_YAML",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("api: [unclosed\n"), 0o644))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wikibase.yaml")
			tt.setup(t, path)

			cfg, err := Load(path)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t, path)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"500ms", 500 * time.Millisecond, false},
		{"2h45m", 2*time.Hour + 45*time.Minute, false},
		{"1d", Day, false},
		{"1w2d", Week + 2*Day, false},
		{"1.5d", 36 * time.Hour, false},
		{"3x", 0, true},
		{"1d junk", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSave_TokenComment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, DefaultConfig()))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "# Prefer "+EnvCSRFToken))
}
