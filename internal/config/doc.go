// Package config defines the wi configuration.
//
//   - config.go: Config struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation and conversion into core options
//   - sanitize.go: Masking of the fingerprint salt for display and logs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// WI_ environment variables and command-line flags.
package config
