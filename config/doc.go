// Package config loads and validates the application configuration.
//
// Configuration is supplied once at startup from config.yml; the realtime
// TTL, per-fetch timeout and feed URL list are not re-read at runtime.
package config
