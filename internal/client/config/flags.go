package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/kumo/internal/flagx"
)

var knownFlags = []string{"-u", "-k", "-w", "-t", "-d", "-p", "-i", "-l", "-demo", "-migrate"}

// parseFlags overlays cfg with command-line flags.
//
//	-u string   backend base URL
//	-k string   backend anon key
//	-w string   primary webhook URL
//	-t string   test webhook URL
//	-d string   data directory
//	-p string   Postgres DSN for direct table access
//	-i int      online check interval (seconds)
//	-l string   log level (debug, info, warn, error)
//	-demo       use the in-memory backend
//	-migrate    apply the Postgres schema (with -p)
//
// args are filtered with flagx.FilterArgs so flags owned elsewhere (-c)
// do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("kumo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BackendURL, "u", cfg.BackendURL, "backend base URL")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "backend anon key")
	fs.StringVar(&cfg.WebhookURL, "w", cfg.WebhookURL, "primary webhook URL")
	fs.StringVar(&cfg.WebhookTestURL, "t", cfg.WebhookTestURL, "test webhook URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.PostgresDSN, "p", cfg.PostgresDSN, "Postgres DSN for direct table access")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "use the in-memory backend")
	fs.BoolVar(&cfg.PostgresMigrate, "migrate", cfg.PostgresMigrate, "apply the Postgres schema (with -p)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		}
	})
	return nil
}
