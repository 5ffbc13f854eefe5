package config

import (
	"flag"
	"os"
	"time"

	"github.com/linguaai/linguaclient/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend provider
//	-k string   provider anon/publishable API key
//	-d string   path of the local cache database
//	-i int      online check interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProviderURL, "a", cfg.ProviderURL, "base URL of the backend provider")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "provider anon API key")
	fs.StringVar(&cfg.CachePath, "d", cfg.CachePath, "path of the local cache database")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
