package config

// Mask replaces secret values in sanitized output.
const Mask = "********"

// Sanitize returns a copy of the config with the fingerprint salt masked.
//
// This is used for `wi config show` and debug logging without exposing
// the salt.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Fingerprint.Salt != "" {
		sanitized.Fingerprint.Salt = Mask
	}

	return &sanitized
}
