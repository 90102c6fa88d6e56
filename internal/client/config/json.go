package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent or
// zero fields leave the current value untouched.
type JsonConfig struct {
	LocalDBPath       string         `json:"local_db_path"`
	LogFile           string         `json:"log_file"`
	LogLevel          string         `json:"log_level"`
	DownloadDir       string         `json:"download_dir"`
	SessionTimeout    timex.Duration `json:"session_timeout"`
	MaxUnlockAttempts int            `json:"max_unlock_attempts"`

	Policy struct {
		MaxItems          int      `json:"max_items"`
		MaxFileBytes      int64    `json:"max_file_bytes"`
		MaxNoteChars      int      `json:"max_note_chars"`
		AllowedMediaTypes []string `json:"allowed_media_types"`
		QuotaBytes        int64    `json:"quota_bytes"`
	} `json:"policy"`

	Remote struct {
		DSN            string `json:"dsn"`
		S3Bucket       string `json:"s3_bucket"`
		S3Region       string `json:"s3_region"`
		S3BaseEndpoint string `json:"s3_base_endpoint"`
		S3AccessKey    string `json:"s3_access_key"`
		S3SecretKey    string `json:"s3_secret_key"`
	} `json:"remote"`
}

// parseJSON overlays cfg with the file given by -c or -config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.DownloadDir, jc.DownloadDir)
	if jc.SessionTimeout.Duration != 0 {
		cfg.SessionTimeout = jc.SessionTimeout.Duration
	}
	setNumber(&cfg.MaxUnlockAttempts, jc.MaxUnlockAttempts)

	setNumber(&cfg.Policy.MaxItems, jc.Policy.MaxItems)
	setNumber(&cfg.Policy.MaxFileBytes, jc.Policy.MaxFileBytes)
	setNumber(&cfg.Policy.MaxNoteChars, jc.Policy.MaxNoteChars)
	setNumber(&cfg.Policy.QuotaBytes, jc.Policy.QuotaBytes)
	if jc.Policy.AllowedMediaTypes != nil {
		cfg.Policy.AllowedMediaTypes = jc.Policy.AllowedMediaTypes
	}

	setString(&cfg.Remote.DSN, jc.Remote.DSN)
	setString(&cfg.Remote.S3Bucket, jc.Remote.S3Bucket)
	setString(&cfg.Remote.S3Region, jc.Remote.S3Region)
	setString(&cfg.Remote.S3BaseEndpoint, jc.Remote.S3BaseEndpoint)
	setString(&cfg.Remote.S3AccessKey, jc.Remote.S3AccessKey)
	setString(&cfg.Remote.S3SecretKey, jc.Remote.S3SecretKey)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | int64](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}
