// Package config handles configuration loading for coven-todo.
//
// # Overview
//
// Configuration is loaded from YAML files (or TOML, when the file name ends
// in .toml) with environment variable expansion, defaults and validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_TODO_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven-todo/config.yaml
//  3. ~/.config/coven-todo/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:3000"
//	  read_header_timeout: "10s"
//	  shutdown_timeout: "5s"
//
//	database:
//	  driver: "sqlite"   # or "sqlite3" for the cgo driver
//	  path: "/var/lib/coven-todo/todos.db"
//
//	tailscale:
//	  enabled: false
//	  hostname: "coven-todo"
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text or json
//
// # Validation
//
// Required: server.http_addr (unless tailscale.enabled), tailscale.hostname
// when Tailscale is enabled, and database.path.
//
// # Writing
//
// Write encodes a Config back to disk in the format its extension implies.
// The init command uses it to produce the starter file.
package config
