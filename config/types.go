package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0"`
}

// GTFSConfig contains GTFS static data source configuration
type GTFSConfig struct {
	StaticURL      string `yaml:"staticURL" validate:"omitempty,url"`
	LocalZipPath   string `yaml:"localZipPath"`
	IndexCachePath string `yaml:"indexCachePath"`
}

// RealtimeConfig contains GTFS-Realtime feed configuration
type RealtimeConfig struct {
	FeedURLs   []string `yaml:"feedURLs" validate:"omitempty,dive,url"`
	TTLSeconds int      `yaml:"ttlSeconds" validate:"gte=0"`
	TimeoutMS  int      `yaml:"timeoutMS" validate:"gte=0"`
}

// TTL returns the snapshot freshness window.
func (c RealtimeConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout returns the per-fetch timeout.
func (c RealtimeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	GTFS     GTFSConfig     `yaml:"gtfs"`
	Realtime RealtimeConfig `yaml:"realtime"`
}
