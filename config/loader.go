package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultStaticURL is the MTA subway GTFS static bundle.
const DefaultStaticURL = "https://rrgtfsfeeds.s3.amazonaws.com/gtfs_subway.zip"

// DefaultFeedURLs are the public NYC subway GTFS-RT feeds, one per line group.
// The base feed (1-7, S, SIR) also carries the service alerts.
var DefaultFeedURLs = []string{
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-ace",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-bdfm",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-g",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-jz",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-l",
	"https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-nqrw",
}

// Config is the global application configuration
var Config AppConfig

// Load reads, validates and defaults a configuration file.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadAppConfig loads config.yml into the global Config. A missing file is
// not an error; the defaults alone are a working configuration.
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	for _, p := range paths {
		cfg, err := Load(p)
		if err == nil {
			Config = cfg
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
	}
	var cfg AppConfig
	applyDefaults(&cfg)
	Config = cfg
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.GTFS.StaticURL == "" && cfg.GTFS.LocalZipPath == "" {
		cfg.GTFS.StaticURL = DefaultStaticURL
	}
	if len(cfg.Realtime.FeedURLs) == 0 {
		cfg.Realtime.FeedURLs = DefaultFeedURLs
	}
	if cfg.Realtime.TTLSeconds == 0 {
		cfg.Realtime.TTLSeconds = 30
	}
	if cfg.Realtime.TimeoutMS == 0 {
		cfg.Realtime.TimeoutMS = 10000
	}
}
