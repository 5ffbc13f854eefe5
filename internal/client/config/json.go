package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/linguaai/linguaclient/internal/flagx"
	"github.com/linguaai/linguaclient/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JsonConfig struct {
	ProviderURL         string         `json:"provider_url"`
	AnonKey             string         `json:"anon_key"`
	CachePath           string         `json:"cache_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LoginTimeout        timex.Duration `json:"login_timeout"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	InitTimeout         timex.Duration `json:"init_timeout"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file whose path
// comes from the -c/-config flags (flagx.JsonConfigFlags). If no path is
// given, nothing is loaded. Zero values in the file leave the current
// Config value untouched, so the file only needs the keys it changes.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ProviderURL != "" {
		cfg.ProviderURL = jc.ProviderURL
	}
	if jc.AnonKey != "" {
		cfg.AnonKey = jc.AnonKey
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.LoginTimeout.Duration != 0 {
		cfg.LoginTimeout = time.Duration(jc.LoginTimeout.Duration)
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.InitTimeout.Duration != 0 {
		cfg.InitTimeout = time.Duration(jc.InitTimeout.Duration)
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
