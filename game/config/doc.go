// Package config loads the application configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// TICTACBOT_* environment variables. The environment always wins, so a
// deployment can override a checked-in config file without editing it.
package config
