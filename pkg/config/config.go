// Package config loads the YAML configuration file of the service.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Default values applied when the configuration file omits them.
const (
	// DefaultMaxPages bounds the initial listing run.
	DefaultMaxPages = 10
	// DefaultMaxRetries is the fixed retry budget of a listing run.
	DefaultMaxRetries = 3
	// DefaultPageCapacity is the number of keys requested per gateway page.
	DefaultPageCapacity = 1000
	// DefaultViewPageSize is the number of records per display page.
	DefaultViewPageSize = 1000
	// DefaultListenAddr is the address of the HTTP API.
	DefaultListenAddr = ":8081"
	// DefaultRefreshSchedule re-enumerates the bucket every hour.
	DefaultRefreshSchedule = "@hourly"
)

// S3Config holds the connection parameters of the S3-compatible store.
type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accesskey"`
	SecretKey     string `yaml:"secretkey"`
	Region        string `yaml:"region"`
	SsoAwsProfile string `yaml:"ssoawsprofile"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
}

// ListingConfig tunes the bounded listing runs.
type ListingConfig struct {
	// MaxPages is the page budget of the initial run.
	MaxPages int `yaml:"maxpages"`
	// MaxRetries is the retry budget per run.
	MaxRetries int `yaml:"maxretries"`
	// PageCapacity is the MaxKeys value sent on each gateway call.
	PageCapacity int `yaml:"pagecapacity"`
	// RateLimit caps gateway calls per second. Zero means unlimited.
	RateLimit float64 `yaml:"ratelimit"`
}

// ViewConfig tunes the derived display pages.
type ViewConfig struct {
	PageSize int `yaml:"pagesize"`
}

// APIConfig configures the HTTP API surface.
type APIConfig struct {
	ListenAddr string `yaml:"listenaddr"`
}

// CatalogConfig configures the optional Postgres snapshot catalog.
// The catalog stays disabled while DatabaseURL is empty.
type CatalogConfig struct {
	DatabaseURL string `yaml:"dburl"`
}

// ScanConfig configures the optional background refresh job.
type ScanConfig struct {
	EnableBackgroundRefresh bool   `yaml:"enablebackgroundrefresh"`
	CronSchedule            string `yaml:"cronschedule"`
}

// Config is the root of the service configuration.
type Config struct {
	S3       S3Config      `yaml:"s3"`
	Listing  ListingConfig `yaml:"listing"`
	View     ViewConfig    `yaml:"view"`
	API      APIConfig     `yaml:"api"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Scan     ScanConfig    `yaml:"scan"`
	LogLevel string        `yaml:"loglevel"`
}

// ReadYamlCnxFile reads a yaml file and returns a Config struct with
// defaults applied to every omitted field.
func ReadYamlCnxFile(filename string) (Config, error) {
	var config Config

	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("error reading YAML file: %w", err)
	}

	err = yaml.Unmarshal(yamlFile, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing YAML file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// applyDefaults fills the zero-valued tunables.
func (c *Config) applyDefaults() {
	if c.Listing.MaxPages <= 0 {
		c.Listing.MaxPages = DefaultMaxPages
	}
	if c.Listing.MaxRetries <= 0 {
		c.Listing.MaxRetries = DefaultMaxRetries
	}
	if c.Listing.PageCapacity <= 0 {
		c.Listing.PageCapacity = DefaultPageCapacity
	}
	if c.View.PageSize <= 0 {
		c.View.PageSize = DefaultViewPageSize
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}
	if c.Scan.CronSchedule == "" {
		c.Scan.CronSchedule = DefaultRefreshSchedule
	}
}
