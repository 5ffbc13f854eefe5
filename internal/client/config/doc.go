// Package config loads the Lingua client configuration from defaults, an
// optional JSON file, and command-line flags, in that order of precedence.
package config
