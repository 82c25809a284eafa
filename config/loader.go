package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// DefaultPaths are searched in order when no explicit path is given.
var DefaultPaths = []string{"config.yml", "./configs/config.yml"}

// ErrNotFound is returned when none of the searched config files exist.
var ErrNotFound = errors.New("config file not found")

const (
	DefaultPort             = 8080
	DefaultDSBEndpoint      = "https://app.dsbcontrol.de/JsonHandler.ashx/GetData"
	DefaultConnectTimeoutMS = 5000
	DefaultReadTimeoutMS    = 10000
	DefaultIntervalMS       = 300000
	DefaultInitialDelayMS   = 10000
	DefaultPageConcurrency  = 4
	DefaultMemorySize       = 64
	DefaultMaxBodyBytes     = 2 << 20
)

// LoadAppConfig loads the configuration into Config. An empty path searches DefaultPaths.
func LoadAppConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// Load reads, validates and defaults a configuration file.
func Load(path string) (AppConfig, error) {
	paths := DefaultPaths
	if path != "" {
		paths = []string{path}
	}
	var data []byte
	err := ErrNotFound
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies environment overrides, validates and fills defaults.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("validate config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("DSB_USERNAME"); v != "" {
		cfg.DSB.Username = v
	}
	if v := os.Getenv("DSB_PASSWORD"); v != "" {
		cfg.DSB.Password = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.DSB.Endpoint == "" {
		cfg.DSB.Endpoint = DefaultDSBEndpoint
	}
	if cfg.DSB.AppVersion == "" {
		cfg.DSB.AppVersion = "2.5.9"
	}
	if cfg.DSB.Device == "" {
		cfg.DSB.Device = "Nexus 4"
	}
	if cfg.DSB.OsVersion == "" {
		cfg.DSB.OsVersion = "27 8.1.0"
	}
	if cfg.DSB.Language == "" {
		cfg.DSB.Language = "de"
	}
	if cfg.DSB.BundleID == "" {
		cfg.DSB.BundleID = "de.heinekingmedia.dsbmobile"
	}
	if cfg.DSB.ConnectTimeoutMS == 0 {
		cfg.DSB.ConnectTimeoutMS = DefaultConnectTimeoutMS
	}
	if cfg.DSB.ReadTimeoutMS == 0 {
		cfg.DSB.ReadTimeoutMS = DefaultReadTimeoutMS
	}
	if cfg.Parser.ConnectTimeoutMS == 0 {
		cfg.Parser.ConnectTimeoutMS = DefaultConnectTimeoutMS
	}
	if cfg.Parser.ReadTimeoutMS == 0 {
		cfg.Parser.ReadTimeoutMS = DefaultReadTimeoutMS
	}
	if cfg.Parser.MaxBodyBytes == 0 {
		cfg.Parser.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "dsbplan.db"
	}
	if cfg.Scheduler.IntervalMS == 0 {
		cfg.Scheduler.IntervalMS = DefaultIntervalMS
	}
	if cfg.Scheduler.InitialDelayMS == 0 {
		cfg.Scheduler.InitialDelayMS = DefaultInitialDelayMS
	}
	if cfg.Aggregator.PageConcurrency == 0 {
		cfg.Aggregator.PageConcurrency = DefaultPageConcurrency
	}
	if cfg.Cache.MemorySize == 0 {
		cfg.Cache.MemorySize = DefaultMemorySize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
