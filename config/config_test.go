package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) Get(key string) string { return m[key] }

func (m mapEnv) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m mapEnv) Unset(key string) error {
	delete(m, key)
	return nil
}

func (m mapEnv) List() []string {
	var list []string
	for k, v := range m {
		list = append(list, k+"="+v)
	}
	return list
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleConfig = `
environment: prod
debug: true
api:
  base_url: https://portal.example.com/api/
  user_agent: damctl/1.0
  timeout: 2m
  retry_max: 5
  retry_wait_max: 10s
auth:
  client_id: file-client
  client_secret: file-secret
  scopes: [offline, "asset:read"]
upload:
  chunk_size: 8MiB
  max_retry_per_chunk: 2
  retry_wait: 500ms
s3:
  region: eu-central-1
  endpoint: http://localhost:9000
  use_path_style: true
metrics:
  enabled: true
  namespace: dam
`

func TestLoadWithEnv(t *testing.T) {
	path := writeFile(t, "config.yml", sampleConfig)

	config, err := LoadWithEnv(path, mapEnv{
		ClientSecretEnvKey:       "env-secret",
		AWSAccessKeyIDEnvKey:     "AKIA",
		AWSSecretAccessKeyEnvKey: "aws-secret",
	})
	require.NoError(t, err)

	assert.True(t, config.Debug)
	assert.Equal(t, "https://portal.example.com/api/", config.API.BaseURL)
	assert.Equal(t, 2*time.Minute, config.API.Timeout)
	assert.Equal(t, "file-client", config.Auth.ClientID)
	assert.Equal(t, "env-secret", config.Auth.ClientSecret)
	assert.Equal(t, []string{"offline", "asset:read"}, config.Auth.Scopes)
	assert.True(t, config.Metrics.Enabled)

	chunkConfig, err := config.ChunkConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024), chunkConfig.ChunkSize)
	assert.Equal(t, uint(2), chunkConfig.MaxRetryPerChunk)
	assert.Equal(t, 500*time.Millisecond, chunkConfig.RetryWait)

	clientConfig, err := config.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/api/", clientConfig.BaseURL)
	assert.Equal(t, "https://portal.example.com/api/", clientConfig.Auth.BaseURL)
	assert.Equal(t, "env-secret", clientConfig.Auth.ClientSecret)
	assert.Equal(t, "damctl/1.0", clientConfig.UserAgent)
	assert.Equal(t, 2*time.Minute, clientConfig.HTTPClient.Timeout)
	assert.Equal(t, 5, clientConfig.RetryMax)
	assert.Equal(t, 10*time.Second, clientConfig.RetryWaitMax)

	s3Params := config.S3Params()
	assert.Equal(t, "eu-central-1", s3Params.Region)
	assert.Equal(t, "AKIA", s3Params.AccessKeyID)
	assert.Equal(t, "aws-secret", s3Params.SecretAccessKey)
	assert.True(t, s3Params.UsePathStyle)
}

func TestLoadWithEnv_Defaults(t *testing.T) {
	path := writeFile(t, "config.yml", "environment: prod\n")

	config, err := LoadWithEnv(path, mapEnv{BaseURLEnvKey: "https://portal.example.com/api/", PermanentTokenEnvKey: "perm"})
	require.NoError(t, err)
	assert.Equal(t, "perm", config.Auth.PermanentToken)

	chunkConfig, err := config.ChunkConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(5*1024*1024), chunkConfig.ChunkSize)
	assert.Equal(t, uint(4), chunkConfig.MaxRetryPerChunk)
}

func TestLoadWithEnv_NoFile(t *testing.T) {
	config, err := LoadWithEnv("", mapEnv{BaseURLEnvKey: "https://portal.example.com/api/"})
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/api/", config.API.BaseURL)
}

func TestLoadWithEnv_DotEnv(t *testing.T) {
	const key = "DAM_TEST_DOTENV_VALUE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dotEnv := writeFile(t, ".env", key+"=from-dotenv\n")
	path := writeFile(t, "config.yml", "environment: dev\ndotenv_path: "+dotEnv+"\napi:\n  base_url: https://portal.example.com/api/\n")

	_, err := LoadWithEnv(path, mapEnv{})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}

func TestLoadWithEnv_MissingDotEnvIsFine(t *testing.T) {
	path := writeFile(t, "config.yml", "environment: dev\ndotenv_path: /nonexistent/.env\napi:\n  base_url: https://portal.example.com/api/\n")

	_, err := LoadWithEnv(path, mapEnv{})
	require.NoError(t, err)
}

func TestLoadWithEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing base URL", content: "environment: prod\n"},
		{name: "invalid chunk size", content: "environment: prod\napi:\n  base_url: https://a/\nupload:\n  chunk_size: lots\n"},
		{name: "invalid yaml", content: "environment: [prod\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yml", tt.content)
			_, err := LoadWithEnv(path, mapEnv{})
			require.Error(t, err)
		})
	}

	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yml"), mapEnv{})
	require.Error(t, err)
}
