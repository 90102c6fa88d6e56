// Package config loads runtime configuration for the vault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-c string   JSON config file
//	-d string   local database file
//	-r string   remote PostgreSQL DSN
//	-t int      session idle timeout (seconds)
//	-l string   log file
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "5m" or
// integer nanoseconds:
//
//	{
//	  "local_db_path": "vault.db",
//	  "session_timeout": "5m",
//	  "policy": {"max_items": 200, "allowed_media_types": ["image/*", "text/plain"]},
//	  "remote": {
//	    "dsn": "$VAULT_DSN",
//	    "s3_bucket": "vault",
//	    "s3_base_endpoint": "http://127.0.0.1:9000"
//	  }
//	}
//
// Remote sync is enabled only when both remote.dsn and remote.s3_bucket are
// set. The DSN and S3 keys are expanded with os.ExpandEnv.
package config
