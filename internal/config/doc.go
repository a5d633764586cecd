// Package config loads, normalizes, and validates rustybus configuration.
//
// Settings come from three places, in increasing order of precedence for
// unset values: repository defaults, a TOML file, and the process
// environment (optionally pre-populated from a .env file). The selected
// backend decides which credentials are required.
//
// Always obtain settings through this package so the dispatcher and the
// transports receive expanded paths and clear validation errors.
package config
