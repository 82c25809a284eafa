package config

// ServerConfig contains server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// DSBConfig contains the upstream DSBmobile endpoint and credentials
type DSBConfig struct {
	Endpoint         string `yaml:"endpoint" validate:"omitempty,url"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	AppVersion       string `yaml:"appVersion"`
	Device           string `yaml:"device"`
	OsVersion        string `yaml:"osVersion"`
	Language         string `yaml:"language" validate:"omitempty,len=2"`
	BundleID         string `yaml:"bundleId"`
	ConnectTimeoutMS int    `yaml:"connectTimeoutMS" validate:"gte=0"`
	ReadTimeoutMS    int    `yaml:"readTimeoutMS" validate:"gte=0"`
}

// ParserConfig contains detail page fetch settings
type ParserConfig struct {
	ConnectTimeoutMS int    `yaml:"connectTimeoutMS" validate:"gte=0"`
	ReadTimeoutMS    int    `yaml:"readTimeoutMS" validate:"gte=0"`
	UserAgent        string `yaml:"userAgent"`
	MaxBodyBytes     int64  `yaml:"maxBodyBytes" validate:"gte=0"`
}

// DatabaseConfig selects the gorm driver and DSN
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig contains the update cycle timing
type SchedulerConfig struct {
	IntervalMS     int `yaml:"intervalMS" validate:"gte=0"`
	InitialDelayMS int `yaml:"initialDelayMS" validate:"gte=0"`
}

// AggregatorConfig contains aggregation tuning
type AggregatorConfig struct {
	PageConcurrency int `yaml:"pageConcurrency" validate:"gte=0,lte=32"`
}

// CacheConfig contains the in-process response cache size
type CacheConfig struct {
	MemorySize int `yaml:"memorySize" validate:"gte=0"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	DSB        DSBConfig        `yaml:"dsb"`
	Parser     ParserConfig     `yaml:"parser"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}
