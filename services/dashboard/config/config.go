package config

import (
	"fmt"
	"os"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/pelletier/go-toml/v2"
)

const (
	// InventorySourceKubernetes lists the cluster nodes
	InventorySourceKubernetes = "kubernetes"
	// InventorySourceStatic uses the targets from the config file
	InventorySourceStatic = "static"
)

const (
	defaultListenAddress            = "0.0.0.0:8080"
	defaultRefreshIntervalInSeconds = 30
	defaultQueryTimeoutInSeconds    = 30
	defaultMaxConcurrentQueries     = 10
	defaultCacheTTLInSeconds        = 5
	defaultSnapshotRetentionSeconds = 86400
	defaultSnapshotHistoryDepth     = 10
	defaultInventoryRefreshSeconds  = 60
)

// InventoryConfig defines where the node targets come from
type InventoryConfig struct {
	Source                   string          `toml:"Source"`
	KubeconfigPath           string          `toml:"KubeconfigPath"`
	KubeContext              string          `toml:"KubeContext"`
	RefreshIntervalInSeconds uint32          `toml:"RefreshIntervalInSeconds"`
	Targets                  []common.Target `toml:"Targets"`
}

// Config maps to the config.toml file for the dashboard service
type Config struct {
	ListenAddress            string          `toml:"ListenAddress"`
	PrometheusURL            string          `toml:"PrometheusURL"`
	NodeExporterPort         uint32          `toml:"NodeExporterPort"`
	RefreshIntervalInSeconds uint32          `toml:"RefreshIntervalInSeconds"`
	QueryTimeoutInSeconds    uint32          `toml:"QueryTimeoutInSeconds"`
	MaxConcurrentQueries     int             `toml:"MaxConcurrentQueries"`
	CacheTTLInSeconds        uint32          `toml:"CacheTTLInSeconds"`
	DefaultTimeSpan          string          `toml:"DefaultTimeSpan"`
	SnapshotRetentionSeconds int             `toml:"SnapshotRetentionSeconds"`
	SnapshotHistoryDepth     int             `toml:"SnapshotHistoryDepth"`
	AllowedOrigins           []string        `toml:"AllowedOrigins"`
	Inventory                InventoryConfig `toml:"Inventory"`
}

// LoadConfig parses a TOML file into the Config struct and applies the defaults
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.ApplyDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset value. CacheTTLInSeconds is left untouched since 0 disables the cache.
func (cfg *Config) ApplyDefaults() {
	if len(cfg.ListenAddress) == 0 {
		cfg.ListenAddress = defaultListenAddress
	}
	if cfg.RefreshIntervalInSeconds == 0 {
		cfg.RefreshIntervalInSeconds = defaultRefreshIntervalInSeconds
	}
	if cfg.QueryTimeoutInSeconds == 0 {
		cfg.QueryTimeoutInSeconds = defaultQueryTimeoutInSeconds
	}
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = defaultMaxConcurrentQueries
	}
	if len(cfg.DefaultTimeSpan) == 0 {
		cfg.DefaultTimeSpan = string(timespan.LastTwentyFourHours)
	}
	if cfg.SnapshotRetentionSeconds == 0 {
		cfg.SnapshotRetentionSeconds = defaultSnapshotRetentionSeconds
	}
	if cfg.SnapshotHistoryDepth <= 0 {
		cfg.SnapshotHistoryDepth = defaultSnapshotHistoryDepth
	}
	if len(cfg.Inventory.Source) == 0 {
		cfg.Inventory.Source = InventorySourceKubernetes
	}
	if cfg.Inventory.RefreshIntervalInSeconds == 0 {
		cfg.Inventory.RefreshIntervalInSeconds = defaultInventoryRefreshSeconds
	}
}

// Validate checks the values that can not be defaulted
func (cfg *Config) Validate() error {
	if len(cfg.PrometheusURL) == 0 {
		return fmt.Errorf("%w: PrometheusURL", errMissingValue)
	}
	_, err := timespan.Parse(cfg.DefaultTimeSpan)
	if err != nil {
		return fmt.Errorf("invalid DefaultTimeSpan: %w", err)
	}

	switch cfg.Inventory.Source {
	case InventorySourceKubernetes:
		return nil
	case InventorySourceStatic:
		if len(cfg.Inventory.Targets) == 0 {
			return fmt.Errorf("%w: Inventory.Targets for the static source", errMissingValue)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownInventorySource, cfg.Inventory.Source)
	}
}
