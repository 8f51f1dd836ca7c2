// Package config loads the client configuration from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/damkit/go-damclient/auth"
	"github.com/damkit/go-damclient/client"
	"github.com/damkit/go-damclient/s3bridge"
	"github.com/damkit/go-damclient/upload/chunkuploader"
	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const productionEnvironment = "prod"

// Environment variables overriding the secrets of the file.
const (
	BaseURLEnvKey              = "DAM_BASE_URL"
	ClientIDEnvKey             = "DAM_CLIENT_ID"
	ClientSecretEnvKey         = "DAM_CLIENT_SECRET"
	PermanentTokenEnvKey       = "DAM_PERMANENT_TOKEN"
	OAuth1ConsumerKeyEnvKey    = "DAM_OAUTH1_CONSUMER_KEY"
	OAuth1ConsumerSecretEnvKey = "DAM_OAUTH1_CONSUMER_SECRET"
	OAuth1TokenEnvKey          = "DAM_OAUTH1_TOKEN"
	OAuth1TokenSecretEnvKey    = "DAM_OAUTH1_TOKEN_SECRET"
	AWSRegionEnvKey            = "AWS_REGION"
	AWSAccessKeyIDEnvKey       = "AWS_ACCESS_KEY_ID"
	AWSSecretAccessKeyEnvKey   = "AWS_SECRET_ACCESS_KEY"
	AWSSessionTokenEnvKey      = "AWS_SESSION_TOKEN"
)

// Config represents the configuration of the client and the command line tool.
type Config struct {
	Environment string        `yaml:"environment"`
	DotEnvPath  string        `yaml:"dotenv_path"`
	Debug       bool          `yaml:"debug"`
	API         APIConfig     `yaml:"api"`
	Auth        AuthConfig    `yaml:"auth"`
	Upload      UploadConfig  `yaml:"upload"`
	S3          S3Config      `yaml:"s3"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// APIConfig ...
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryMax     int           `yaml:"retry_max"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`
}

// AuthConfig ...
type AuthConfig struct {
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	RedirectURL    string   `yaml:"redirect_url"`
	Scopes         []string `yaml:"scopes"`
	PermanentToken string   `yaml:"permanent_token"`

	OAuth1ConsumerKey    string `yaml:"oauth1_consumer_key"`
	OAuth1ConsumerSecret string `yaml:"oauth1_consumer_secret"`
	OAuth1Token          string `yaml:"oauth1_token"`
	OAuth1TokenSecret    string `yaml:"oauth1_token_secret"`
}

// UploadConfig ...
type UploadConfig struct {
	// ChunkSize is a human readable size, e.g. "5MiB".
	ChunkSize        string        `yaml:"chunk_size"`
	MaxRetryPerChunk *uint         `yaml:"max_retry_per_chunk"`
	RetryWait        time.Duration `yaml:"retry_wait"`
}

// S3Config ...
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// MetricsConfig ...
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// Textfile is where metrics are written on exit, for the node exporter textfile collector.
	Textfile string `yaml:"textfile"`
}

// Load reads the config file at path. Outside production a .env file is loaded first (a missing one is
// fine), then secrets are taken from the environment when set.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, env.NewRepository())
}

// LoadWithEnv is Load reading the environment through envRepo.
func LoadWithEnv(path string, envRepo env.Repository) (*Config, error) {
	config := &Config{}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close() //nolint:errcheck

		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if config.Environment != productionEnvironment {
		dotEnvPath := config.DotEnvPath
		if dotEnvPath == "" {
			dotEnvPath = ".env"
		}
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotEnvPath, err)
		}
	}

	config.applyEnv(envRepo)

	if err := config.basicCheck(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv(envRepo env.Repository) {
	overrides := map[string]*string{
		BaseURLEnvKey:              &c.API.BaseURL,
		ClientIDEnvKey:             &c.Auth.ClientID,
		ClientSecretEnvKey:         &c.Auth.ClientSecret,
		PermanentTokenEnvKey:       &c.Auth.PermanentToken,
		OAuth1ConsumerKeyEnvKey:    &c.Auth.OAuth1ConsumerKey,
		OAuth1ConsumerSecretEnvKey: &c.Auth.OAuth1ConsumerSecret,
		OAuth1TokenEnvKey:          &c.Auth.OAuth1Token,
		OAuth1TokenSecretEnvKey:    &c.Auth.OAuth1TokenSecret,
		AWSRegionEnvKey:            &c.S3.Region,
		AWSAccessKeyIDEnvKey:       &c.S3.AccessKeyID,
		AWSSecretAccessKeyEnvKey:   &c.S3.SecretAccessKey,
		AWSSessionTokenEnvKey:      &c.S3.SessionToken,
	}
	for key, field := range overrides {
		if value := envRepo.Get(key); value != "" {
			*field = value
		}
	}
}

// basicCheck validates the values a client can't be created without.
func (c *Config) basicCheck() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is empty, set api.base_url or %s", BaseURLEnvKey)
	}
	if _, err := c.ChunkConfig(); err != nil {
		return err
	}
	return nil
}

// ChunkConfig returns the chunk uploader settings, defaulting what the file leaves unset.
func (c *Config) ChunkConfig() (chunkuploader.Config, error) {
	chunkConfig := chunkuploader.DefaultConfig()

	if c.Upload.ChunkSize != "" {
		size, err := units.RAMInBytes(c.Upload.ChunkSize)
		if err != nil {
			return chunkConfig, fmt.Errorf("invalid chunk size %q: %w", c.Upload.ChunkSize, err)
		}
		if size <= 0 {
			return chunkConfig, fmt.Errorf("invalid chunk size %q: must be positive", c.Upload.ChunkSize)
		}
		chunkConfig.ChunkSize = size
	}
	if c.Upload.MaxRetryPerChunk != nil {
		chunkConfig.MaxRetryPerChunk = *c.Upload.MaxRetryPerChunk
	}
	chunkConfig.RetryWait = c.Upload.RetryWait

	return chunkConfig, nil
}

// ClientConfig returns the settings of client.New.
func (c *Config) ClientConfig() (client.Config, error) {
	chunkConfig, err := c.ChunkConfig()
	if err != nil {
		return client.Config{}, err
	}

	clientConfig := client.DefaultConfig()
	clientConfig.BaseURL = c.API.BaseURL
	clientConfig.UserAgent = c.API.UserAgent
	clientConfig.Upload = chunkConfig
	if c.API.Timeout > 0 {
		clientConfig.HTTPClient.Timeout = c.API.Timeout
	}
	if c.API.RetryMax > 0 {
		clientConfig.RetryMax = c.API.RetryMax
	}
	if c.API.RetryWaitMax > 0 {
		clientConfig.RetryWaitMax = c.API.RetryWaitMax
	}
	clientConfig.Auth = auth.Config{
		BaseURL:        c.API.BaseURL,
		ClientID:       c.Auth.ClientID,
		ClientSecret:   c.Auth.ClientSecret,
		RedirectURL:    c.Auth.RedirectURL,
		Scopes:         c.Auth.Scopes,
		PermanentToken: c.Auth.PermanentToken,
		OAuth1: auth.OAuth1Credentials{
			ConsumerKey:    c.Auth.OAuth1ConsumerKey,
			ConsumerSecret: c.Auth.OAuth1ConsumerSecret,
			Token:          c.Auth.OAuth1Token,
			TokenSecret:    c.Auth.OAuth1TokenSecret,
		},
	}

	return clientConfig, nil
}

// S3Params ...
func (c *Config) S3Params() s3bridge.Params {
	return s3bridge.Params{
		Region:          c.S3.Region,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		SessionToken:    c.S3.SessionToken,
		Endpoint:        c.S3.Endpoint,
		UsePathStyle:    c.S3.UsePathStyle,
	}
}
