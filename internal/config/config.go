package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	DB     DBConfig     `yaml:"db"`
	Bridge BridgeConfig `yaml:"bridge"`
	Sync   SyncConfig   `yaml:"sync"`
}

// HTTPConfig governs the admin HTTP server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig points at the SQLite database file.
type DBConfig struct {
	Path string `yaml:"path"`
}

// BridgeConfig describes connectivity to the Bridge activity feed.
type BridgeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	PageLimit int           `yaml:"page_limit"`
}

// SyncConfig controls the recurring sync job.
type SyncConfig struct {
	JobName       string        `yaml:"job_name"`
	Interval      time.Duration `yaml:"interval"`
	LeaseTTL      time.Duration `yaml:"lease_ttl"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxSkipped    int           `yaml:"max_skipped"`
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultDBPath          = "bridgesync.db"
	defaultBridgeURL       = "https://api.bridge.xyz/v0"
	defaultBridgeTimeout   = 15 * time.Second
	defaultPageLimit       = 100
	defaultJobName         = "bridge-activity-sync"
	defaultSyncInterval    = 10 * time.Second
	defaultLeaseTTL        = 60 * time.Second
	defaultRetryInterval   = 5 * time.Minute
	defaultMaxSkipped      = 1000
)

// applyDefaults fills zero-valued fields after YAML parse.
func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultAddr
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.DB.Path == "" {
		c.DB.Path = defaultDBPath
	}
	if c.Bridge.BaseURL == "" {
		c.Bridge.BaseURL = defaultBridgeURL
	}
	if c.Bridge.Timeout <= 0 {
		c.Bridge.Timeout = defaultBridgeTimeout
	}
	if c.Bridge.PageLimit <= 0 || c.Bridge.PageLimit > 100 {
		c.Bridge.PageLimit = defaultPageLimit
	}
	if c.Sync.JobName == "" {
		c.Sync.JobName = defaultJobName
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = defaultSyncInterval
	}
	if c.Sync.LeaseTTL <= 0 {
		c.Sync.LeaseTTL = defaultLeaseTTL
	}
	if c.Sync.RetryInterval <= 0 {
		c.Sync.RetryInterval = defaultRetryInterval
	}
	if c.Sync.MaxSkipped <= 0 {
		c.Sync.MaxSkipped = defaultMaxSkipped
	}
}

// applyEnv lets environment variables override file values, so deploys can
// tweak a single knob without editing the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("BRIDGE_BASE_URL"); v != "" {
		c.Bridge.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		c.Bridge.APIKey = v
	}
	if v := os.Getenv("SYNC_INTERVAL_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			c.Sync.Interval = time.Duration(ms) * time.Millisecond
		}
	}
}

// Validate rejects configurations the service cannot run with.
func Validate(c *Config) error {
	if c.Bridge.BaseURL == "" {
		return fmt.Errorf("bridge.base_url is required")
	}
	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync.interval %s too short (minimum 1s)", c.Sync.Interval)
	}
	if c.Sync.LeaseTTL <= c.Sync.Interval {
		return fmt.Errorf("sync.lease_ttl %s must exceed sync.interval %s",
			c.Sync.LeaseTTL, c.Sync.Interval)
	}
	return nil
}
