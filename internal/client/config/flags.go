package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
// Supported flags:
//
//	-d string   local database file
//	-r string   remote PostgreSQL DSN
//	-t int      session idle timeout in seconds (0 disables)
//	-l string   log file
//
// Args are filtered with flagx.FilterArgs first, so flags owned by other
// parsers (-c) do not interfere.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, "-d", "-r", "-t", "-l")

	fs := flag.NewFlagSet("vault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database file")
	fs.StringVar(&cfg.Remote.DSN, "r", cfg.Remote.DSN, "remote PostgreSQL DSN")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	timeout := fs.Int("t", int(cfg.SessionTimeout.Seconds()), "session idle timeout (in seconds)")

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	cfg.SessionTimeout = time.Duration(*timeout) * time.Second
	return nil
}
