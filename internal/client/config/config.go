package config

import "time"

// Config holds runtime settings for the Lingua client.
//
// Fields:
//   - ProviderURL: base URL of the hosted backend (auth + tables + realtime).
//   - AnonKey: the provider's publishable API key, sent on every request.
//   - CachePath: path of the local cache database file.
//   - OnlineCheckInterval: how often the watcher probes provider reachability.
//   - LoginTimeout: budget for login-class calls before they count as offline.
//   - RequestTimeout: budget for generic calls.
//   - InitTimeout: fallback budget for session restore during startup.
//   - LogLevel: slog level name (debug/info/warn/error).
type Config struct {
	ProviderURL         string
	AnonKey             string
	CachePath           string
	OnlineCheckInterval time.Duration
	LoginTimeout        time.Duration
	RequestTimeout      time.Duration
	InitTimeout         time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults. Connectivity flags are
// unreliable, so the timeouts double as the effective offline detector:
// 10s for login, 5s for everything else.
func (c *Config) LoadDefaults() {
	c.ProviderURL = "http://127.0.0.1:54321"
	c.AnonKey = ""
	c.CachePath = "lingua.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.LoginTimeout = 10 * time.Second
	c.RequestTimeout = 5 * time.Second
	c.InitTimeout = 5 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
