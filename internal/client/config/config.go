package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings of the vault client.
type Config struct {
	LocalDBPath       string        `validate:"required"`
	LogFile           string        `validate:"required"`
	LogLevel          string        `validate:"oneof=debug info warn error"`
	DownloadDir       string        `validate:"required"`
	SessionTimeout    time.Duration `validate:"gte=0"`
	MaxUnlockAttempts int           `validate:"gte=0"`
	Policy            PolicyConfig
	Remote            RemoteConfig
}

// PolicyConfig holds the admission ceilings. Zero disables a ceiling.
type PolicyConfig struct {
	MaxItems          int      `validate:"gte=0"`
	MaxFileBytes      int64    `validate:"gte=0"`
	MaxNoteChars      int      `validate:"gte=0"`
	AllowedMediaTypes []string `validate:"dive,required"`
	QuotaBytes        int64    `validate:"gte=0"`
}

// RemoteConfig holds the remote store credentials. Both DSN and S3Bucket
// must be set for remote sync to be enabled.
type RemoteConfig struct {
	DSN            string `validate:"required_with=S3Bucket"`
	S3Bucket       string `validate:"required_with=DSN"`
	S3Region       string
	S3BaseEndpoint string `validate:"omitempty,url"`
	S3AccessKey    string
	S3SecretKey    string
}

func (r RemoteConfig) IsConfigured() bool {
	return r.DSN != "" && r.S3Bucket != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "vault.db"
	c.LogFile = "gophvault.log"
	c.LogLevel = "info"
	c.DownloadDir = "downloads"
	c.SessionTimeout = 5 * time.Minute
	c.MaxUnlockAttempts = 5
	c.Policy = PolicyConfig{
		MaxItems:     200,
		MaxFileBytes: 5 << 20,
		MaxNoteChars: 5000,
		AllowedMediaTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"application/pdf", "text/plain",
		},
		QuotaBytes: 50 << 20,
	}
	c.Remote = RemoteConfig{S3Region: "us-east-1"}
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// command-line flags. Later sources take precedence. Secrets may reference
// environment variables ("$VAULT_DSN").
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.Remote.DSN = os.ExpandEnv(cfg.Remote.DSN)
	cfg.Remote.S3AccessKey = os.ExpandEnv(cfg.Remote.S3AccessKey)
	cfg.Remote.S3SecretKey = os.ExpandEnv(cfg.Remote.S3SecretKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
